package service

import (
	"context"
	"sync"
	"time"

	"kogma/db"
	"kogma/internal/auth"
	"kogma/internal/events"
	"kogma/internal/validators"
	"kogma/models"
)

var (
	testValidate = validators.New(true)
	alice        = auth.Principal{ID: 1, Email: "alice@kogma.local", Role: models.RoleUser, Status: models.UserActive}
	admin        = auth.Principal{ID: 2, Email: "admin@kogma.local", Role: models.RoleAdmin, Status: models.UserActive}
	nobody       = auth.Principal{}
)

type fakeCompanies struct {
	rows    map[int64]*models.Company
	nextID  int64
	created []*models.Company
}

func newFakeCompanies() *fakeCompanies {
	return &fakeCompanies{rows: map[int64]*models.Company{}, nextID: 1}
}

func (f *fakeCompanies) ListCompanies(context.Context, string) ([]models.Company, error) {
	out := []models.Company{}
	for _, c := range f.rows {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCompanies) GetCompany(_ context.Context, id int64) (*models.Company, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCompanies) CreateCompany(_ context.Context, c *models.Company) error {
	for _, other := range f.rows {
		if c.CNPJ != nil && other.CNPJ != nil && *c.CNPJ == *other.CNPJ {
			return db.ErrConflict
		}
	}
	c.ID = f.nextID
	f.nextID++
	cp := *c
	f.rows[c.ID] = &cp
	f.created = append(f.created, &cp)
	return nil
}

func (f *fakeCompanies) UpdateCompany(_ context.Context, c *models.Company) error {
	if _, ok := f.rows[c.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

type createCall struct {
	order     models.Order
	processes []models.ProcessStep
	materials []models.MaterialLine
}

type fakeOrders struct {
	creates []createCall
	patches []models.OrderPatch
	filters []models.OrderFilter
	orders  map[int64]*models.Order
	err     error
	nextID  int64
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[int64]*models.Order{}, nextID: 10}
}

func (f *fakeOrders) ListOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	f.filters = append(f.filters, filter)
	return []models.Order{}, f.err
}

func (f *fakeOrders) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeOrders) CreateOrder(_ context.Context, o *models.Order, processes []models.ProcessStep, materials []models.MaterialLine) error {
	if f.err != nil {
		return f.err
	}
	o.ID = f.nextID
	o.Version = 1
	f.nextID++
	f.creates = append(f.creates, createCall{order: *o, processes: processes, materials: materials})
	return nil
}

func (f *fakeOrders) PatchOrder(_ context.Context, id int64, p models.OrderPatch) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.orders[id]; !ok {
		return db.ErrNotFound
	}
	f.patches = append(f.patches, p)
	return nil
}

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	nextID    int64
	tokens    map[string]time.Time
	tokenUser map[string]int64
	deleted   []int64
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[int64]*models.User{}, nextID: 100, tokens: map[string]time.Time{}, tokenUser: map[string]int64{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeUsers) GetUserByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	exp, ok := f.tokens[tokenHash]
	id := f.tokenUser[tokenHash]
	f.mu.Unlock()
	if !ok || !exp.After(now) {
		return nil, db.ErrNotFound
	}
	return f.GetUserByID(context.Background(), id)
}

func (f *fakeUsers) ListUsers(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.byID {
		if other.Email == u.Email {
			return db.ErrConflict
		}
	}
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) UpdateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, other := range f.byID {
		if id != u.ID && other.Email == u.Email {
			return db.ErrConflict
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUsers) SetResetToken(_ context.Context, id int64, tokenHash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenHash] = expires
	f.tokenUser[tokenHash] = id
	return nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.PasswordHash = &hash
	for k, uid := range f.tokenUser {
		if uid == id {
			delete(f.tokens, k)
			delete(f.tokenUser, k)
		}
	}
	return nil
}

type recordNotifier struct {
	events []events.Event
	err    error
}

func (r *recordNotifier) Notify(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return r.err
}

type recordMailer struct {
	to, link string
	calls    int
}

func (m *recordMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.to, m.link = to, link
	m.calls++
	return nil
}
