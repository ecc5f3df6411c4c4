package handlers

import (
	"net/http"

	"kogma/models"
)

// ListUsersHandler handles GET /users (admin only)
func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context(), principal(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUserHandler handles POST /users; answers the generated password when none was sent
func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var in models.NewUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Users.Create(r.Context(), principal(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// PatchUserHandler handles PATCH and PUT /users/{id}
func (h *Handler) PatchUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in models.PatchUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Users.Patch(r.Context(), principal(r), id, in); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// DeleteUserHandler handles DELETE /users/{id}
func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Users.Delete(r.Context(), principal(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
