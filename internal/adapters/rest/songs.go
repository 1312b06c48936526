package rest

import (
	"net/http"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/validation"
)

type searchQuery struct {
	Query string `json:"q" validate:"max=200"`
	Limit int    `json:"limit" validate:"gte=0,lte=100"`
}

type searchResponse struct {
	Query string        `json:"query"`
	Songs []domain.Song `json:"songs"`
}

type lookupQuery struct {
	Title  string `json:"title" validate:"required,max=200"`
	Artist string `json:"artist" validate:"required,max=200"`
}

type featuresResponse struct {
	Song     domain.Song        `json:"song"`
	Features map[string]float64 `json:"features"`
}

// SearchSongs handles GET /api/v1/songs/search?q=&limit=
func (h *Handler) SearchSongs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := searchQuery{Query: r.URL.Query().Get("q"), Limit: limit}
	if err := validation.Struct(q); err != nil {
		writeServiceError(w, err)
		return
	}
	songs, err := h.svc.Search(q.Query, q.Limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q.Query, Songs: songs})
}

// LookupSong handles GET /api/v1/songs/lookup?title=&artist=
func (h *Handler) LookupSong(w http.ResponseWriter, r *http.Request) {
	q := lookupQuery{Title: r.URL.Query().Get("title"), Artist: r.URL.Query().Get("artist")}
	if err := validation.Struct(q); err != nil {
		writeServiceError(w, err)
		return
	}
	song, err := h.svc.SongByNameAndArtist(q.Title, q.Artist)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// GetSongFeatures handles GET /api/v1/songs/{index}/features
func (h *Handler) GetSongFeatures(w http.ResponseWriter, r *http.Request) {
	idx, err := pathIndex(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	song, err := h.svc.Song(idx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, featuresResponse{Song: song, Features: song.Features.Map()})
}

// GetSongSpotify handles GET /api/v1/songs/{index}/spotify
func (h *Handler) GetSongSpotify(w http.ResponseWriter, r *http.Request) {
	if !h.svc.EnrichmentEnabled() {
		writeErrorWithCode(w, http.StatusNotImplemented, "spotify enrichment not configured", errCodeNotConfigured)
		return
	}
	idx, err := pathIndex(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	info, err := h.svc.EnrichSong(r.Context(), idx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
