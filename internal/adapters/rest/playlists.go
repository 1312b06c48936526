package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ewilliams-labs/songmatch/internal/core/services"
)

type createPlaylistRequest struct {
	Seed      string  `json:"seed" validate:"required,max=200"`
	Length    int     `json:"length" validate:"omitempty,gte=5,lte=25"`
	Diversity float64 `json:"diversity" validate:"omitempty,gte=0.1,lte=1"`
	Name      string  `json:"name" validate:"max=100"`
}

// CreatePlaylist handles POST /api/v1/playlists
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	playlist, err := h.svc.GeneratePlaylist(r.Context(), services.PlaylistRequest{
		Seed:      req.Seed,
		Length:    req.Length,
		Diversity: req.Diversity,
		Name:      req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/playlists/"+playlist.ID)
	writeJSON(w, http.StatusCreated, playlist)
}

// GetPlaylist handles GET /api/v1/playlists/{id}
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.svc.GetPlaylist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// GetPlaylistAnalysis handles GET /api/v1/playlists/{id}/analysis
func (h *Handler) GetPlaylistAnalysis(w http.ResponseWriter, r *http.Request) {
	features, err := h.svc.PlaylistAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, features)
}
