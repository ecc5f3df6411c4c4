package handlers_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kogma/db"
	"kogma/internal/auth"
	"kogma/internal/handlers"
	"kogma/models"

	"github.com/stretchr/testify/require"
)

type stubUsers map[int64]*models.User

func (s stubUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newRouter(t *testing.T, pinger handlers.Pinger) (http.Handler, *auth.TokenManager, *MockOrders) {
	t.Helper()
	tm, err := auth.NewTokenManager("router-test-secret", "", time.Hour)
	require.NoError(t, err)

	users := stubUsers{
		1: {ID: 1, Email: "ana@kogma.local", Role: models.RoleUser, Status: models.UserActive},
		2: {ID: 2, Email: "off@kogma.local", Role: models.RoleUser, Status: models.UserInactive},
	}
	orders := &MockOrders{}
	h := handlers.NewHandler(handlers.Services{Companies: &MockCompanies{}, Orders: orders, Auth: &MockAuth{}}, pinger, nil)
	r := handlers.NewRouter(h, handlers.RouterConfig{
		Auth:        auth.NewMiddleware(tm, users, nil),
		CORSOrigins: []string{"http://localhost:5173"},
	})
	return r, tm, orders
}

func serve(t *testing.T, r http.Handler, req *http.Request) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	return w.Code, string(body)
}

func bearer(t *testing.T, tm *auth.TokenManager, u *models.User) string {
	t.Helper()
	tok, err := tm.GenerateToken(u)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestRouterHealth(t *testing.T) {
	r, _, _ := newRouter(t, stubPinger{})

	code, body := serve(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body)

	code, _ = serve(t, r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, code)
}

func TestRouterReadyzDatabaseDown(t *testing.T) {
	r, _, _ := newRouter(t, stubPinger{err: errors.New("connection refused")})

	code, body := serve(t, r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Contains(t, body, "unavailable")
}

func TestRouterUnknownRoute(t *testing.T) {
	r, _, _ := newRouter(t, nil)

	code, body := serve(t, r, httptest.NewRequest(http.MethodGet, "/nope?x=1", nil))
	require.Equal(t, http.StatusNotFound, code)
	require.JSONEq(t, `{"error": "Not found", "path": "/nope?x=1"}`, body)
}

func TestRouterRequiresAuth(t *testing.T) {
	r, tm, orders := newRouter(t, nil)

	code, _ := serve(t, r, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	code, _ = serve(t, r, req)
	require.Equal(t, http.StatusUnauthorized, code)

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", bearer(t, tm, &models.User{ID: 2, Email: "off@kogma.local", Role: models.RoleUser}))
	code, body := serve(t, r, req)
	require.Equal(t, http.StatusForbidden, code)
	require.Contains(t, body, "Usuário inativo.")

	req = httptest.NewRequest(http.MethodGet, "/orders?withMaterials=true", nil)
	req.Header.Set("Authorization", bearer(t, tm, &models.User{ID: 1, Email: "ana@kogma.local", Role: models.RoleUser}))
	code, _ = serve(t, r, req)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(1), orders.principal.ID)
	require.True(t, orders.withChildren)
}

func TestRouterAdminOnlyUsers(t *testing.T) {
	r, tm, _ := newRouter(t, nil)

	for _, path := range []string{"/users", "/admin/users", "/auth/admin-gate"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer(t, tm, &models.User{ID: 1, Email: "ana@kogma.local", Role: models.RoleUser}))
		code, _ := serve(t, r, req)
		require.Equal(t, http.StatusForbidden, code, path)
	}
}

func TestRouterPublicAuthRoutes(t *testing.T) {
	r, _, _ := newRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/password/recover", nil)
	code, body := serve(t, r, req)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "message")
}
