package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kogma/internal/cnpj"
	"kogma/models"

	"github.com/jmoiron/sqlx"
)

const companyColumns = "id, name, cnpj, created_at, updated_at"

// ListCompanies returns companies whose name or cnpj contains q, newest first.
func (s *Storage) ListCompanies(ctx context.Context, q string) ([]models.Company, error) {
	query := "SELECT " + companyColumns + " FROM companies"
	var args []any

	if q = strings.TrimSpace(q); q != "" {
		conds := []string{"LOWER(name) LIKE ?"}
		args = append(args, likePattern(q))
		if digits := cnpj.Normalize(q); digits != "" {
			conds = append(conds, "cnpj LIKE ?")
			args = append(args, likePattern(digits))
		}
		query += " WHERE " + strings.Join(conds, " OR ")
	}
	query += " ORDER BY id DESC"

	companies := []models.Company{}
	if err := s.db.SelectContext(ctx, &companies, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

func (s *Storage) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	c := &models.Company{}
	query := "SELECT " + companyColumns + " FROM companies WHERE id = ?"
	err := s.db.GetContext(ctx, c, s.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company %d: %w", id, err)
	}
	return c, nil
}

func (s *Storage) CreateCompany(ctx context.Context, c *models.Company) error {
	id, err := insertID(ctx, s.db,
		`INSERT INTO companies (name, cnpj) VALUES (?, ?)`, c.Name, c.CNPJ)
	if err != nil {
		return fmt.Errorf("create company: %w", classify(err))
	}
	c.ID = id
	return nil
}

func (s *Storage) UpdateCompany(ctx context.Context, c *models.Company) error {
	query := `
        UPDATE companies
        SET name = ?, cnpj = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), c.Name, c.CNPJ, c.ID); err != nil {
		return fmt.Errorf("update company %d: %w", c.ID, classify(err))
	}
	return nil
}

// companyExists fails with ErrReference when the company is missing.
func companyExists(ctx context.Context, tx *sqlx.Tx, id int64) error {
	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(1) FROM companies WHERE id = ?`), id); err != nil {
		return fmt.Errorf("check company %d: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: company %d", ErrReference, id)
	}
	return nil
}
