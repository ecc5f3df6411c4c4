package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kogma/models"
)

const userColumns = `id, name, email, password_hash, role, status, reset_token, reset_expires, created_at, updated_at`

func (s *Storage) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	err := s.db.GetContext(ctx, u, s.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

// GetUserByResetToken finds the user holding an unexpired reset token digest.
func (s *Storage) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	u := &models.User{}
	query := "SELECT " + userColumns + " FROM users WHERE reset_token = ? AND reset_expires > ?"
	err := s.db.GetContext(ctx, u, s.db.Rebind(query), tokenHash, now.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := "SELECT " + userColumns + " FROM users ORDER BY id DESC"
	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	id, err := insertID(ctx, s.db, `
        INSERT INTO users (name, email, password_hash, role, status)
        VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Status)
	if err != nil {
		return fmt.Errorf("create user: %w", classify(err))
	}
	u.ID = id
	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, u *models.User) error {
	query := `
        UPDATE users
        SET name = ?, email = ?, password_hash = ?, role = ?, status = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		u.Name, u.Email, u.PasswordHash, u.Role, u.Status, u.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, classify(err))
	}
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Storage) SetResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error {
	query := `UPDATE users SET reset_token = ?, reset_expires = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), tokenHash, expires.UTC(), id); err != nil {
		return fmt.Errorf("set reset token for user %d: %w", id, err)
	}
	return nil
}

// ResetPassword stores the new hash and burns the reset token.
func (s *Storage) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
        UPDATE users
        SET password_hash = ?, reset_token = NULL, reset_expires = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), passwordHash, id); err != nil {
		return fmt.Errorf("reset password for user %d: %w", id, err)
	}
	return nil
}
