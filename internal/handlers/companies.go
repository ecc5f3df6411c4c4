package handlers

import (
	"net/http"

	"kogma/models"
)

// ListCompaniesHandler handles GET /companies?q=
func (h *Handler) ListCompaniesHandler(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Companies.List(r.Context(), principal(r), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

// GetCompanyHandler handles GET /companies/{id}
func (h *Handler) GetCompanyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.Companies.Get(r.Context(), principal(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company": c})
}

// CreateCompanyHandler handles POST /companies
func (h *Handler) CreateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	var in models.CreateCompanyInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.Companies.Create(r.Context(), principal(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// PatchCompanyHandler handles PATCH /companies/{id}
func (h *Handler) PatchCompanyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in models.PatchCompanyInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Companies.Patch(r.Context(), principal(r), id, in); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
