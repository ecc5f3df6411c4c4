package auth

import (
	"context"

	"kogma/models"
)

// Principal is the authenticated caller. Services take it as an explicit
// argument instead of reading it from the context.
type Principal struct {
	ID     int64
	Email  string
	Role   models.Role
	Status models.UserStatus
}

func PrincipalFromUser(u *models.User) Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status}
}

// Active reports whether the principal is a known, enabled account.
func (p Principal) Active() bool {
	return p.ID > 0 && p.Status == models.UserActive
}

func (p Principal) IsAdmin() bool {
	return p.Active() && p.Role == models.RoleAdmin
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by RequireAuth.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
