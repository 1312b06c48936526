package rest

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/logging"
	"github.com/ewilliams-labs/songmatch/internal/validation"
	"github.com/ewilliams-labs/songmatch/internal/worker"
)

const (
	errCodeValidation       = "VALIDATION_ERROR"
	errCodeUnknownFeature   = "UNKNOWN_FEATURE"
	errCodeSongNotFound     = "SONG_NOT_FOUND"
	errCodeNotFound         = "NOT_FOUND"
	errCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	errCodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	errCodeNoConfidentMatch = "NO_CONFIDENT_MATCH"
	errCodeNotConfigured    = "NOT_CONFIGURED"
	errCodeUnavailable      = "UPSTREAM_UNAVAILABLE"
	errCodeCatalogNotLoaded = "CATALOG_NOT_LOADED"
	errCodeImportInProgress = "IMPORT_IN_PROGRESS"
	errCodeQueueFull        = "QUEUE_FULL"
	errCodeRateLimited      = "RATE_LIMITED"
	errCodeInternal         = "INTERNAL_ERROR"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Code    string                  `json:"code,omitempty"`
	Details []validation.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// writeServiceError maps service and adapter errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Code: errCodeValidation, Details: verr.Fields})
	case errors.Is(err, domain.ErrCatalogNotLoaded):
		writeErrorWithCode(w, http.StatusServiceUnavailable, "catalog not loaded", errCodeCatalogNotLoaded)
	case errors.Is(err, domain.ErrSongNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeSongNotFound)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, worker.ErrJobNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNotFound)
	case errors.Is(err, domain.ErrUnknownFeature):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeUnknownFeature)
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMissingColumns):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeValidation)
	case errors.Is(err, ports.ErrNoConfidentMatch):
		writeErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), errCodeNoConfidentMatch)
	case errors.Is(err, domain.ErrIntentUnavailable), errors.Is(err, domain.ErrEnrichmentUnavailable):
		writeErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), errCodeUnavailable)
	case errors.Is(err, domain.ErrImportInProgress):
		writeErrorWithCode(w, http.StatusConflict, err.Error(), errCodeImportInProgress)
	case errors.Is(err, worker.ErrQueueFull):
		writeErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), errCodeQueueFull)
	default:
		logging.Error().Err(err).Msg("request failed")
		writeErrorWithCode(w, http.StatusInternalServerError, "internal server error", errCodeInternal)
	}
}

func isJSONContentType(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !isJSONContentType(r) {
		writeErrorWithCode(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errCodeUnsupportedMedia)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "invalid request body: "+err.Error(), errCodeValidation)
		return false
	}
	if err := validation.Struct(dst); err != nil {
		writeServiceError(w, err)
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter; absent gives 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &validation.RequestValidationError{Fields: []validation.FieldError{{
			Field: name, Tag: "int", Message: fmt.Sprintf("%s must be an integer", name),
		}}}
	}
	return v, nil
}

func pathIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &validation.RequestValidationError{Fields: []validation.FieldError{{
			Field: "index", Tag: "int", Message: "index must be an integer",
		}}}
	}
	return v, nil
}
