package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type importRequest struct {
	Source string `json:"source" validate:"max=1024"`
}

// GetCatalog handles GET /api/v1/catalog
func (h *Handler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	info, err := h.svc.CatalogInfo()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// StartImport handles POST /api/v1/catalog/import. The import runs on the
// worker pool; poll the returned job for its outcome. An empty body imports
// the default dataset.
func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	job, err := h.jobs.Submit(req.Source)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/catalog/import/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

// GetImport handles GET /api/v1/catalog/import/{id}
func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
