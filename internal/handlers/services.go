package handlers

import (
	"context"

	"kogma/internal/auth"
	"kogma/internal/service"
	"kogma/models"
)

type CompanyService interface {
	List(ctx context.Context, p auth.Principal, q string) ([]models.Company, error)
	Get(ctx context.Context, p auth.Principal, id int64) (*models.Company, error)
	Create(ctx context.Context, p auth.Principal, in models.CreateCompanyInput) (int64, error)
	Patch(ctx context.Context, p auth.Principal, id int64, in models.PatchCompanyInput) error
}

type OrderService interface {
	List(ctx context.Context, p auth.Principal, status, q string, withChildren bool) ([]models.Order, error)
	Get(ctx context.Context, p auth.Principal, id int64) (*models.Order, error)
	Create(ctx context.Context, p auth.Principal, in models.CreateOrderInput) (int64, error)
	Patch(ctx context.Context, p auth.Principal, id int64, in models.PatchOrderInput) error
}

type AuthService interface {
	Register(ctx context.Context, in models.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, in models.LoginInput) (*service.Session, error)
	Me(ctx context.Context, p auth.Principal) (*models.User, error)
	Recover(ctx context.Context, email string) error
	CheckResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, in models.ResetPasswordInput) error
}

type UserService interface {
	List(ctx context.Context, p auth.Principal) ([]models.User, error)
	Create(ctx context.Context, p auth.Principal, in models.NewUserInput) (*service.CreatedUser, error)
	Patch(ctx context.Context, p auth.Principal, id int64, in models.PatchUserInput) error
	Delete(ctx context.Context, p auth.Principal, id int64) error
}

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}
