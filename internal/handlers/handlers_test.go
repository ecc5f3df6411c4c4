package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kogma/internal/apierror"
	"kogma/internal/auth"
	"kogma/internal/handlers"
	"kogma/internal/handlers/testutils"
	"kogma/internal/service"
	"kogma/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var user = auth.Principal{ID: 1, Email: "ana@kogma.local", Role: models.RoleUser, Status: models.UserActive}

type MockCompanies struct {
	created models.CreateCompanyInput
	patched models.PatchCompanyInput
	err     error
}

func (m *MockCompanies) List(ctx context.Context, p auth.Principal, q string) ([]models.Company, error) {
	cnpj := "11222333000181"
	return []models.Company{{ID: 1, Name: "Acme " + q, CNPJ: &cnpj}}, m.err
}
func (m *MockCompanies) Get(ctx context.Context, p auth.Principal, id int64) (*models.Company, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Company{ID: id, Name: "Acme"}, nil
}
func (m *MockCompanies) Create(ctx context.Context, p auth.Principal, in models.CreateCompanyInput) (int64, error) {
	m.created = in
	return 7, m.err
}
func (m *MockCompanies) Patch(ctx context.Context, p auth.Principal, id int64, in models.PatchCompanyInput) error {
	m.patched = in
	return m.err
}

type MockOrders struct {
	principal    auth.Principal
	status, q    string
	withChildren bool
	created      models.CreateOrderInput
	patched      models.PatchOrderInput
	patchedID    int64
	err          error
}

func (m *MockOrders) List(ctx context.Context, p auth.Principal, status, q string, withChildren bool) ([]models.Order, error) {
	m.principal, m.status, m.q, m.withChildren = p, status, q, withChildren
	o := models.Order{ID: 3, Title: "Pedido", Qty: decimal.RequireFromString("12.5"), Status: models.StatusOpen}
	if withChildren {
		o.Processes = []models.ProcessStep{}
		o.Materials = []models.MaterialLine{}
	}
	return []models.Order{o}, m.err
}
func (m *MockOrders) Get(ctx context.Context, p auth.Principal, id int64) (*models.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Order{
		ID:             id,
		Title:          "Pedido",
		ClientDeadline: models.NewDate(2025, time.September, 20),
		Processes:      models.DefaultProcesses(),
		Materials:      []models.MaterialLine{},
	}, nil
}
func (m *MockOrders) Create(ctx context.Context, p auth.Principal, in models.CreateOrderInput) (int64, error) {
	m.principal, m.created = p, in
	return 42, m.err
}
func (m *MockOrders) Patch(ctx context.Context, p auth.Principal, id int64, in models.PatchOrderInput) error {
	m.patchedID, m.patched = id, in
	return m.err
}

func newHandler() (*handlers.Handler, *MockCompanies, *MockOrders) {
	companies, orders := &MockCompanies{}, &MockOrders{}
	h := handlers.NewHandler(handlers.Services{Companies: companies, Orders: orders}, nil, nil)
	return h, companies, orders
}

func do(t *testing.T, fn http.HandlerFunc, req *http.Request) (*http.Response, string) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, req)
	res := w.Result()
	t.Cleanup(func() { res.Body.Close() })
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestPingHandler(t *testing.T) {
	h, _, _ := newHandler()
	res, body := do(t, h.PingHandler, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", body)
}

func TestListOrdersHandler(t *testing.T) {
	h, _, orders := newHandler()

	req := testutils.AsUser(httptest.NewRequest(http.MethodGet, "/orders?status=late&q=acme", nil), user)
	res, body := do(t, h.ListOrdersHandler, req)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "late", orders.status)
	require.Equal(t, "acme", orders.q)
	require.False(t, orders.withChildren)
	require.Equal(t, user, orders.principal)
	require.Contains(t, body, `"qty":12.5`)
	require.NotContains(t, body, `"processes"`)
}

func TestListOrdersWithMaterials(t *testing.T) {
	for _, v := range []string{"1", "true"} {
		h, _, orders := newHandler()
		req := testutils.AsUser(httptest.NewRequest(http.MethodGet, "/orders?withMaterials="+v, nil), user)
		res, body := do(t, h.ListOrdersHandler, req)

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.True(t, orders.withChildren)
		require.Contains(t, body, `"processes":[]`)
		require.Contains(t, body, `"materials":[]`)
	}
}

func TestGetOrderHandler(t *testing.T) {
	h, _, _ := newHandler()

	req := testutils.WithChiURLParams(httptest.NewRequest(http.MethodGet, "/orders/9", nil), map[string]string{"id": "9"})
	res, body := do(t, h.GetOrderHandler, testutils.AsUser(req, user))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		Order struct {
			ID             int64  `json:"id"`
			ClientDeadline string `json:"client_deadline"`
			Processes      []struct {
				Name string `json:"name"`
			} `json:"processes"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Equal(t, int64(9), out.Order.ID)
	require.Equal(t, "2025-09-20", out.Order.ClientDeadline)
	require.Len(t, out.Order.Processes, 6)
	require.Equal(t, "Corte a laser", out.Order.Processes[0].Name)
	require.Contains(t, body, `"final_deadline":null`)
}

func TestGetOrderHandlerBadID(t *testing.T) {
	h, _, _ := newHandler()
	for _, id := range []string{"abc", "0", "-1"} {
		req := testutils.WithChiURLParams(httptest.NewRequest(http.MethodGet, "/orders/"+id, nil), map[string]string{"id": id})
		res, body := do(t, h.GetOrderHandler, testutils.AsUser(req, user))
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		require.Contains(t, body, "id inválido")
	}
}

func TestGetOrderHandlerNotFound(t *testing.T) {
	h, _, orders := newHandler()
	orders.err = apierror.NotFound("Pedido não encontrado")

	req := testutils.WithChiURLParams(httptest.NewRequest(http.MethodGet, "/orders/9", nil), map[string]string{"id": "9"})
	res, body := do(t, h.GetOrderHandler, testutils.AsUser(req, user))
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.JSONEq(t, `{"error": "Pedido não encontrado"}`, body)
}

func TestCreateOrderHandler(t *testing.T) {
	h, _, orders := newHandler()

	reqBody := `{
        "company_id": 1,
        "title": "Pedido X",
        "qty": 10,
        "client_deadline": "2025-09-20T00:00:00.000Z",
        "materials": [{"description": "Chapa", "qty": 2}]
    }`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	res, body := do(t, h.CreateOrderHandler, testutils.AsUser(req, user))

	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.JSONEq(t, `{"id": 42}`, body)
	require.Equal(t, "Pedido X", orders.created.Title)
	require.Equal(t, "2025-09-20", orders.created.ClientDeadline.String())
	require.Nil(t, orders.created.Processes)
	require.Len(t, orders.created.Materials, 1)
}

func TestCreateOrderHandlerBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"title": `, "JSON inválido"},
		{"wrong type", `{"company_id": "x"}`, "company_id"},
		{"bad date", `{"company_id": 1, "title": "X", "client_deadline": "amanhã"}`, "invalid date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, orders := newHandler()
			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			res, body := do(t, h.CreateOrderHandler, testutils.AsUser(req, user))
			require.Equal(t, http.StatusBadRequest, res.StatusCode)
			require.Contains(t, body, tt.want)
			require.Empty(t, orders.created.Title)
		})
	}
}

func TestPatchOrderHandler(t *testing.T) {
	h, _, orders := newHandler()

	req := httptest.NewRequest(http.MethodPatch, "/orders/5", strings.NewReader(`{"status": "done", "final_deadline": null}`))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
	res, body := do(t, h.PatchOrderHandler, testutils.AsUser(req, user))

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"ok": true}`, body)
	require.Equal(t, int64(5), orders.patchedID)
	require.True(t, orders.patched.Status.Set)
	require.Equal(t, models.StatusDone, orders.patched.Status.Value)
	require.True(t, orders.patched.FinalDeadline.Set)
	require.True(t, orders.patched.FinalDeadline.Null)
	require.False(t, orders.patched.Title.Set)
	require.False(t, orders.patched.Processes.Set)
}

func TestPatchOrderHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apierror.Validation("Dados inválidos").Add("title", "campo obrigatório"), http.StatusBadRequest},
		{"unknown company", apierror.New(apierror.KindReference, "Cliente não encontrado"), http.StatusUnprocessableEntity},
		{"stale version", apierror.Conflict("Registro alterado"), http.StatusConflict},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, orders := newHandler()
			orders.err = tt.err
			req := httptest.NewRequest(http.MethodPatch, "/orders/5", strings.NewReader(`{}`))
			req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
			res, body := do(t, h.PatchOrderHandler, testutils.AsUser(req, user))
			require.Equal(t, tt.status, res.StatusCode)
			if tt.status == http.StatusInternalServerError {
				require.JSONEq(t, `{"error": "Erro interno"}`, body)
			}
		})
	}
}

func TestCompanyHandlers(t *testing.T) {
	h, companies, _ := newHandler()

	res, body := do(t, h.ListCompaniesHandler, testutils.AsUser(httptest.NewRequest(http.MethodGet, "/companies?q=sa", nil), user))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body, `"companies":[`)
	require.Contains(t, body, "Acme sa")

	req := httptest.NewRequest(http.MethodPost, "/companies", strings.NewReader(`{"name": "Acme", "cnpj": "11.222.333/0001-81"}`))
	res, body = do(t, h.CreateCompanyHandler, testutils.AsUser(req, user))
	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.JSONEq(t, `{"id": 7}`, body)
	require.Equal(t, "11.222.333/0001-81", companies.created.CNPJ)

	req = httptest.NewRequest(http.MethodPatch, "/companies/7", strings.NewReader(`{"cnpj": null}`))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "7"})
	res, _ = do(t, h.PatchCompanyHandler, testutils.AsUser(req, user))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.True(t, companies.patched.CNPJ.Null)
	require.False(t, companies.patched.Name.Set)

	companies.err = apierror.Conflict("CNPJ já cadastrado")
	req = httptest.NewRequest(http.MethodPost, "/companies", strings.NewReader(`{"name": "Dup"}`))
	res, body = do(t, h.CreateCompanyHandler, testutils.AsUser(req, user))
	require.Equal(t, http.StatusConflict, res.StatusCode)
	require.Contains(t, body, "CNPJ já cadastrado")
}

type MockAuth struct {
	recovered string
	err       error
}

func (m *MockAuth) Register(ctx context.Context, in models.RegisterInput) (*service.Session, error) {
	return &service.Session{Token: "tok", User: &models.User{ID: 11, Email: in.Email, Role: models.RoleUser}}, m.err
}
func (m *MockAuth) Login(ctx context.Context, in models.LoginInput) (*service.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.Session{Token: "tok", User: &models.User{ID: 1, Email: in.Email}}, nil
}
func (m *MockAuth) Me(ctx context.Context, p auth.Principal) (*models.User, error) {
	return &models.User{ID: p.ID, Email: p.Email}, nil
}
func (m *MockAuth) Recover(ctx context.Context, email string) error {
	m.recovered = email
	return nil
}
func (m *MockAuth) CheckResetToken(ctx context.Context, token string) error {
	if token != "good" {
		return apierror.Validation("token inválido ou expirado")
	}
	return nil
}
func (m *MockAuth) ResetPassword(ctx context.Context, in models.ResetPasswordInput) error {
	return m.err
}

func TestAuthHandlers(t *testing.T) {
	a := &MockAuth{}
	h := handlers.NewHandler(handlers.Services{Auth: a}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"name": "Ana", "email": "ana@x.com", "password": "segredo"}`))
	res, body := do(t, h.RegisterHandler, req)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.Contains(t, body, `"id":11`)
	require.Contains(t, body, `"token":"tok"`)
	require.NotContains(t, body, "password")

	req = httptest.NewRequest(http.MethodPost, "/auth/password/recover", strings.NewReader(`{"email": "who@x.com"}`))
	res, body = do(t, h.RecoverPasswordHandler, req)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body, service.RecoverMessage)
	require.Equal(t, "who@x.com", a.recovered)

	res, _ = do(t, h.CheckResetTokenHandler, httptest.NewRequest(http.MethodGet, "/auth/password/check?token=good", nil))
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	res, _ = do(t, h.CheckResetTokenHandler, httptest.NewRequest(http.MethodGet, "/auth/password/check?token=bad", nil))
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	a.err = apierror.Unauthorized("Credenciais inválidas.")
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email": "a@x.com", "password": "x"}`))
	res, body = do(t, h.LoginHandler, req)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.JSONEq(t, `{"error": "Credenciais inválidas."}`, body)
}
