package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/validation"
)

type histogramQuery struct {
	Bins int `json:"bins" validate:"gte=0,lte=100"`
}

type topQuery struct {
	N int `json:"n" validate:"gte=0,lte=100"`
}

type topSongsResponse struct {
	Feature string        `json:"feature"`
	Songs   []domain.Song `json:"songs"`
}

func (h *Handler) GetOverview(w http.ResponseWriter, _ *http.Request) {
	ov, err := h.svc.Overview()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (h *Handler) GetFeatureStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.svc.FeatureStats()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetCorrelations(w http.ResponseWriter, _ *http.Request) {
	corr, err := h.svc.Correlations()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, corr)
}

// GetHistogram handles GET /api/v1/explore/features/{name}/histogram?bins=
func (h *Handler) GetHistogram(w http.ResponseWriter, r *http.Request) {
	bins, err := queryInt(r, "bins")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := histogramQuery{Bins: bins}
	if err := validation.Struct(q); err != nil {
		writeServiceError(w, err)
		return
	}
	hist, err := h.svc.Histogram(chi.URLParam(r, "name"), q.Bins)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// GetTopSongs handles GET /api/v1/explore/features/{name}/top?n=
func (h *Handler) GetTopSongs(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := topQuery{N: n}
	if err := validation.Struct(q); err != nil {
		writeServiceError(w, err)
		return
	}
	feature := chi.URLParam(r, "name")
	songs, err := h.svc.TopByFeature(feature, q.N)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topSongsResponse{Feature: feature, Songs: songs})
}
