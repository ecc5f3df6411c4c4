package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"kogma/db"
	"kogma/internal/apierror"
	"kogma/internal/auth"
	"kogma/internal/mailer"
	"kogma/models"

	"github.com/go-playground/validator/v10"
)

// RecoverMessage is returned for every recovery request, whether or not the
// address belongs to an account.
const RecoverMessage = "Se o e-mail estiver cadastrado e ativo, você receberá um link para cadastrar uma nova senha."

const (
	resetTokenBytes = 32
	resetTokenTTL   = 2 * time.Hour
	minPasswordLen  = 6
	maxPasswordLen  = 72 // bcrypt limit, in bytes
)

var userMessages = messages{
	notFound: "Usuário não encontrado",
	conflict: "E-mail já cadastrado.",
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Auth handles self-service account flows: registration, login and
// password recovery.
type Auth struct {
	users    UserStore
	tokens   *auth.TokenManager
	mail     mailer.Mailer
	validate *validator.Validate
	resetURL string
	now      func() time.Time
	log      *slog.Logger
}

func NewAuth(users UserStore, tokens *auth.TokenManager, mail mailer.Mailer, validate *validator.Validate,
	frontendBaseURL, resetPath string, log *slog.Logger) *Auth {
	if log == nil {
		log = slog.Default()
	}
	if mail == nil {
		mail = mailer.Log{Logger: log}
	}
	if !strings.HasPrefix(resetPath, "/") {
		resetPath = "/" + resetPath
	}
	return &Auth{
		users:    users,
		tokens:   tokens,
		mail:     mail,
		validate: validate,
		resetURL: strings.TrimRight(frontendBaseURL, "/") + resetPath,
		now:      time.Now,
		log:      log.With("svc", "auth"),
	}
}

// Register creates an active account with the user role and signs it in.
func (s *Auth) Register(ctx context.Context, in models.RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := check(s.validate, in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	u := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: &hash,
		Role:         models.RoleUser,
		Status:       models.UserActive,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, storeError(err, userMessages)
	}
	s.log.Info("user registered", "user_id", u.ID)
	return s.session(u)
}

func (s *Auth) Login(ctx context.Context, in models.LoginInput) (*Session, error) {
	if err := check(s.validate, in); err != nil {
		return nil, apierror.Validation("Informe email e senha.")
	}
	invalid := apierror.Unauthorized("Credenciais inválidas.")

	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, db.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apierror.Internal(err)
	}
	if u.Status != models.UserActive {
		return nil, apierror.Forbidden("Usuário inativo.")
	}
	if u.PasswordHash == nil || !auth.CheckPassword(*u.PasswordHash, in.Password) {
		return nil, invalid
	}
	return s.session(u)
}

func (s *Auth) session(u *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(u)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return &Session{Token: token, User: u}, nil
}

func (s *Auth) Me(ctx context.Context, p auth.Principal) (*models.User, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	u, err := s.users.GetUserByID(ctx, p.ID)
	if err != nil {
		return nil, storeError(err, userMessages)
	}
	return u, nil
}

// Recover mails a reset link to active accounts. It never reports whether
// the address exists; failures are only logged.
func (s *Auth) Recover(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apierror.Validation("email é obrigatório").Add("email", "campo obrigatório")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Error("recover: lookup failed", "err", err)
		}
		return nil
	}
	if u.Status != models.UserActive {
		s.log.Debug("recover: inactive account", "user_id", u.ID)
		return nil
	}

	token, err := auth.RandomToken(resetTokenBytes)
	if err != nil {
		s.log.Error("recover: token generation failed", "err", err)
		return nil
	}
	if err := s.users.SetResetToken(ctx, u.ID, hashToken(token), s.now().Add(resetTokenTTL)); err != nil {
		s.log.Error("recover: store token failed", "user_id", u.ID, "err", err)
		return nil
	}
	link := s.resetURL + "?token=" + url.QueryEscape(token)
	if err := s.mail.SendPasswordReset(ctx, u.Email, link); err != nil {
		s.log.Error("recover: mail failed", "user_id", u.ID, "err", err)
	}
	return nil
}

// CheckResetToken reports whether token can still be used.
func (s *Auth) CheckResetToken(ctx context.Context, token string) error {
	_, err := s.userByResetToken(ctx, token)
	return err
}

func (s *Auth) ResetPassword(ctx context.Context, in models.ResetPasswordInput) error {
	password := in.Password
	if password == "" {
		password = in.NewPassword
	}
	if len(password) < minPasswordLen {
		return apierror.Validation("A senha deve ter pelo menos 6 caracteres.").Add("password", "valor muito curto, mínimo 6")
	}
	if len(password) > maxPasswordLen {
		return apierror.Validation("A senha deve ter no máximo 72 bytes.").Add("password", "valor muito longo, máximo 72")
	}
	u, err := s.userByResetToken(ctx, in.Token)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apierror.Internal(err)
	}
	if err := s.users.ResetPassword(ctx, u.ID, hash); err != nil {
		return apierror.Internal(err)
	}
	s.log.Info("password reset", "user_id", u.ID)
	return nil
}

func (s *Auth) userByResetToken(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierror.Validation("token é obrigatório")
	}
	u, err := s.users.GetUserByResetToken(ctx, hashToken(token), s.now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, apierror.Validation("token inválido ou expirado")
	}
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return u, nil
}

// EnsureAdmin makes sure an active admin account exists for email. An
// existing account keeps its password.
func (s *Auth) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, db.ErrNotFound):
		if len(password) < minPasswordLen {
			return errors.New("ADMIN_PASSWORD must have at least 6 characters")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		name, _, _ := strings.Cut(email, "@")
		u = &models.User{Name: name, Email: email, PasswordHash: &hash, Role: models.RoleAdmin, Status: models.UserActive}
		if err := s.users.CreateUser(ctx, u); err != nil {
			return err
		}
		s.log.Info("admin account created", "user_id", u.ID)
		return nil
	case err != nil:
		return err
	}

	if u.Role == models.RoleAdmin && u.Status == models.UserActive {
		return nil
	}
	u.Role, u.Status = models.RoleAdmin, models.UserActive
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.log.Info("admin account promoted", "user_id", u.ID)
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
