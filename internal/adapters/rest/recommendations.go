package rest

import (
	"net/http"

	"github.com/ewilliams-labs/songmatch/internal/validation"
)

type songRecommendationQuery struct {
	Title  string `json:"title" validate:"required,max=200"`
	Artist string `json:"artist" validate:"max=200"`
	N      int    `json:"n" validate:"gte=0,lte=100"`
}

type featureRecommendationRequest struct {
	Features map[string]float64 `json:"features" validate:"dive,keys,audiofeature,endkeys,gte=0,lte=1"`
	N        int                `json:"n" validate:"gte=0,lte=100"`
}

type describeRequest struct {
	Message string `json:"message" validate:"required,max=500"`
	N       int    `json:"n" validate:"gte=0,lte=100"`
}

// RecommendBySong handles GET /api/v1/recommendations/song?title=&artist=&n=
func (h *Handler) RecommendBySong(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := songRecommendationQuery{
		Title:  r.URL.Query().Get("title"),
		Artist: r.URL.Query().Get("artist"),
		N:      n,
	}
	if err := validation.Struct(q); err != nil {
		writeServiceError(w, err)
		return
	}
	recs, err := h.svc.RecommendBySong(r.Context(), q.Title, q.Artist, q.N)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// RecommendByFeatures handles POST /api/v1/recommendations/features
func (h *Handler) RecommendByFeatures(w http.ResponseWriter, r *http.Request) {
	var req featureRecommendationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	recs, err := h.svc.RecommendByFeatures(r.Context(), req.Features, req.N)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// RecommendByDescription handles POST /api/v1/recommendations/describe
func (h *Handler) RecommendByDescription(w http.ResponseWriter, r *http.Request) {
	if !h.svc.IntentEnabled() {
		writeErrorWithCode(w, http.StatusNotImplemented, "intent compiler not configured", errCodeNotConfigured)
		return
	}
	var req describeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	recs, err := h.svc.RecommendByDescription(r.Context(), req.Message, req.N)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
