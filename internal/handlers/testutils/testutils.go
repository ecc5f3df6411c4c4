package testutils

import (
	"context"
	"net/http"

	"kogma/internal/auth"

	"github.com/go-chi/chi/v5"
)

// WithChiURLParams puts path parameters into the chi route context of req.
func WithChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for k, v := range params {
		chiCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

// AsUser attaches p as the authenticated caller, as auth.Middleware would.
func AsUser(req *http.Request, p auth.Principal) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}
