package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"kogma/internal/apierror"
	"kogma/internal/auth"
	"kogma/models"

	"github.com/go-playground/validator/v10"
)

const tempPasswordLen = 10

// Users is the admin-only account management.
type Users struct {
	store    UserStore
	validate *validator.Validate
	log      *slog.Logger
}

func NewUsers(store UserStore, validate *validator.Validate, log *slog.Logger) *Users {
	if log == nil {
		log = slog.Default()
	}
	return &Users{store: store, validate: validate, log: log.With("svc", "users")}
}

// CreatedUser carries the generated password when none was supplied.
type CreatedUser struct {
	ID           int64  `json:"id"`
	TempPassword string `json:"temp_password,omitempty"`
}

func (s *Users) List(ctx context.Context, p auth.Principal) ([]models.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError(err, userMessages)
	}
	return users, nil
}

// Create adds an account. Name defaults to the local part of the email and a
// temporary password is generated when none is given.
func (s *Users) Create(ctx context.Context, p auth.Principal, in models.NewUserInput) (*CreatedUser, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := check(s.validate, in); err != nil {
		return nil, err
	}

	out := &CreatedUser{}
	password := in.Password
	if password == "" {
		generated, err := auth.GeneratePassword(tempPasswordLen)
		if err != nil {
			return nil, apierror.Internal(err)
		}
		password, out.TempPassword = generated, generated
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apierror.Internal(err)
	}

	u := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: &hash,
		Role:         in.Role,
		Status:       in.Status,
	}
	if u.Name == "" {
		u.Name, _, _ = strings.Cut(in.Email, "@")
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Status == "" {
		u.Status = models.UserActive
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, storeError(err, userMessages)
	}
	out.ID = u.ID
	s.log.Info("user created", "user_id", u.ID, "role", u.Role, "by", p.ID)
	return out, nil
}

func (s *Users) Patch(ctx context.Context, p auth.Principal, id int64, in models.PatchUserInput) error {
	if err := requireAdmin(p); err != nil {
		return err
	}

	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return storeError(err, userMessages)
	}

	verr := apierror.Validation("Dados inválidos")
	if in.Name.Set {
		name := strings.TrimSpace(in.Name.Value)
		switch {
		case in.Name.Null || name == "":
			verr.Add("name", "campo obrigatório")
		case utf8.RuneCountInString(name) > 190:
			verr.Add("name", "valor muito longo, máximo 190")
		default:
			u.Name = name
		}
	}
	if in.Email.Set {
		email := normalizeEmail(in.Email.Value)
		if _, err := mail.ParseAddress(email); in.Email.Null || err != nil {
			verr.Add("email", "e-mail inválido")
		} else {
			u.Email = email
		}
	}
	if in.Role.Set {
		if !in.Role.Value.Valid() {
			verr.Add("role", "Permissão inválida")
		} else {
			u.Role = in.Role.Value
		}
	}
	if in.Status.Set {
		if !in.Status.Value.Valid() {
			verr.Add("status", "valor inválido")
		} else {
			u.Status = in.Status.Value
		}
	}
	if in.Password.Set {
		switch {
		case len(in.Password.Value) < minPasswordLen:
			verr.Add("password", "valor muito curto, mínimo 6")
		case len(in.Password.Value) > maxPasswordLen:
			verr.Add("password", "valor muito longo, máximo 72")
		default:
			hash, err := auth.HashPassword(in.Password.Value)
			if err != nil {
				return apierror.Internal(err)
			}
			u.PasswordHash = &hash
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return storeError(err, userMessages)
	}
	s.log.Info("user updated", "user_id", id, "by", p.ID)
	return nil
}

func (s *Users) Delete(ctx context.Context, p auth.Principal, id int64) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if id == p.ID {
		return apierror.Validation("Você não pode excluir a si mesmo")
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return storeError(err, userMessages)
	}
	s.log.Info("user deleted", "user_id", id, "by", p.ID)
	return nil
}
