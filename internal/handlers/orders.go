package handlers

import (
	"net/http"
	"strings"

	"kogma/models"
)

// ListOrdersHandler handles GET /orders?status=&q=&withMaterials=
func (h *Handler) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	withChildren := flag(q.Get("withMaterials"))

	orders, err := h.Orders.List(r.Context(), principal(r), q.Get("status"), q.Get("q"), withChildren)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// GetOrderHandler handles GET /orders/{id}; the order always carries its
// processes and materials.
func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), principal(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

// CreateOrderHandler handles POST /orders
func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var in models.CreateOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.Orders.Create(r.Context(), principal(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// PatchOrderHandler handles PATCH /orders/{id}
func (h *Handler) PatchOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in models.PatchOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Orders.Patch(r.Context(), principal(r), id, in); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func flag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true":
		return true
	}
	return false
}
