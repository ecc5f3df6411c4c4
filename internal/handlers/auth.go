package handlers

import (
	"net/http"

	"kogma/internal/service"
	"kogma/models"
)

// RegisterHandler handles POST /auth/register
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.Auth.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ID int64 `json:"id"`
		*service.Session
	}{s.User.ID, s})
}

// LoginHandler handles POST /auth/login
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.Auth.Login(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// MeHandler handles GET /auth/me
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.Me(r.Context(), principal(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

// AdminGateHandler answers 204 once the admin role check passed.
func (h *Handler) AdminGateHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// RecoverPasswordHandler handles POST /auth/password/recover. The answer is
// the same whether or not the email exists.
func (h *Handler) RecoverPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Auth.Recover(r.Context(), in.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": service.RecoverMessage})
}

// CheckResetTokenHandler handles GET /auth/password/check?token=
func (h *Handler) CheckResetTokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.CheckResetToken(r.Context(), r.URL.Query().Get("token")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPasswordHandler handles POST /auth/password/reset
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var in models.ResetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), in); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Senha definida com sucesso. Você já pode entrar."})
}
