package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kogma/db"
	"kogma/models"
)

type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Middleware authenticates bearer tokens and checks that the account behind
// them still exists and is active.
type Middleware struct {
	tokens *TokenManager
	users  UserLookup
	log    *slog.Logger
}

func NewMiddleware(tokens *TokenManager, users UserLookup, log *slog.Logger) *Middleware {
	if log == nil {
		log = slog.Default()
	}
	return &Middleware{tokens: tokens, users: users, log: log.With("cmp", "auth")}
}

func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if h := r.Header.Get("Authorization"); h != "" {
			tok, err := ExtractToken(h)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Não autenticado")
				return
			}
			raw = tok
		} else if r.Header.Get("Upgrade") == "websocket" {
			// browsers cannot set headers on websocket handshakes
			raw = r.URL.Query().Get("token")
		}
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Não autenticado")
			return
		}

		claims, err := m.tokens.ValidateToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
			return
		}
		id, _ := claims.UserID()

		u, err := m.users.GetUserByID(r.Context(), id)
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
			return
		}
		if err != nil {
			m.log.Error("load user failed", "user_id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "Erro interno")
			return
		}
		if u.Status != models.UserActive {
			writeError(w, http.StatusForbidden, "Usuário inativo.")
			return
		}

		ctx := WithPrincipal(r.Context(), PrincipalFromUser(u))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole must run after RequireAuth.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Não autenticado")
				return
			}
			if p.Role != role {
				writeError(w, http.StatusForbidden, "Acesso negado")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
