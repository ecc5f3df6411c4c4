// Package service holds the business rules behind the HTTP API. Every
// operation takes the caller as an explicit auth.Principal.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"kogma/db"
	"kogma/internal/apierror"
	"kogma/internal/auth"
	"kogma/models"

	"github.com/go-playground/validator/v10"
)

type CompanyStore interface {
	ListCompanies(ctx context.Context, q string) ([]models.Company, error)
	GetCompany(ctx context.Context, id int64) (*models.Company, error)
	CreateCompany(ctx context.Context, c *models.Company) error
	UpdateCompany(ctx context.Context, c *models.Company) error
}

type OrderStore interface {
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	CreateOrder(ctx context.Context, o *models.Order, processes []models.ProcessStep, materials []models.MaterialLine) error
	PatchOrder(ctx context.Context, id int64, p models.OrderPatch) error
}

type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	SetResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error
	ResetPassword(ctx context.Context, id int64, passwordHash string) error
}

// messages are the client-facing texts for storage failures of one entity.
type messages struct {
	notFound  string
	conflict  string
	reference string
}

// storeError translates storage sentinels into API errors.
func storeError(err error, m messages) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrVersionMismatch):
		return apierror.Wrap(apierror.KindConflict, err, "Registro alterado por outra pessoa. Recarregue e tente novamente.")
	case errors.Is(err, db.ErrNotFound):
		return apierror.Wrap(apierror.KindNotFound, err, or(m.notFound, "Registro não encontrado"))
	case errors.Is(err, db.ErrReference):
		return apierror.Wrap(apierror.KindReference, err, or(m.reference, "Registro relacionado não existe"))
	case errors.Is(err, db.ErrConflict):
		return apierror.Wrap(apierror.KindConflict, err, or(m.conflict, "Registro duplicado"))
	default:
		return apierror.Internal(err)
	}
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func requireActive(p auth.Principal) error {
	if !p.Active() {
		return apierror.Unauthorized("Não autenticado")
	}
	return nil
}

func requireAdmin(p auth.Principal) error {
	if err := requireActive(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return apierror.Forbidden("Acesso negado")
	}
	return nil
}

// check runs struct validation and reports failures per field.
func check(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	if ae := apierror.FromValidationError(err); ae != nil {
		return ae
	}
	return apierror.Wrap(apierror.KindValidation, err, "Dados inválidos")
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
