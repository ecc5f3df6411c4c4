package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"kogma/models"

	"github.com/jmoiron/sqlx"
)

// ErrVersionMismatch is returned when a patch carries a stale version.
var ErrVersionMismatch = fmt.Errorf("%w: order was changed by someone else", ErrConflict)

const orderColumns = `o.id, o.company_id, c.name AS company_name, o.title, o.qty, o.unit,
        o.client_deadline, o.final_deadline, o.status, o.version, o.created_at, o.updated_at`

// ListOrders returns orders matching the filter, newest first. With
// WithChildren set, processes and materials are loaded with one query each
// for the whole page.
func (s *Storage) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders o JOIN companies c ON c.id = o.company_id"
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "o.status = ?")
		args = append(args, f.Status)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := likePattern(q)
		where = append(where, "(LOWER(o.title) LIKE ? OR LOWER(c.name) LIKE ?)")
		args = append(args, p, p)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.id DESC"

	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if f.WithChildren {
		if err := s.attachChildren(ctx, orders); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// GetOrder returns one order with its processes and materials.
func (s *Storage) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	query := "SELECT " + orderColumns + " FROM orders o JOIN companies c ON c.id = o.company_id WHERE o.id = ?"
	err := s.db.GetContext(ctx, &o, s.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	orders := []models.Order{o}
	if err := s.attachChildren(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s *Storage) attachChildren(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Processes = []models.ProcessStep{}
		orders[i].Materials = []models.MaterialLine{}
	}

	query, args, err := sqlx.In(`
        SELECT id, order_id, name, planned_date, done
        FROM order_processes
        WHERE order_id IN (?)
        ORDER BY order_id, id`, ids)
	if err != nil {
		return fmt.Errorf("build processes query: %w", err)
	}
	var procs []models.ProcessStep
	if err := s.db.SelectContext(ctx, &procs, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load processes: %w", err)
	}
	for _, p := range procs {
		i := index[p.OrderID]
		orders[i].Processes = append(orders[i].Processes, p)
	}

	query, args, err = sqlx.In(`
        SELECT id, order_id, description, qty, unit, in_stock
        FROM order_materials
        WHERE order_id IN (?)
        ORDER BY order_id, id`, ids)
	if err != nil {
		return fmt.Errorf("build materials query: %w", err)
	}
	var mats []models.MaterialLine
	if err := s.db.SelectContext(ctx, &mats, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load materials: %w", err)
	}
	for _, m := range mats {
		i := index[m.OrderID]
		orders[i].Materials = append(orders[i].Materials, m)
	}

	for i := range orders {
		sortProcesses(orders[i].Processes)
	}
	return nil
}

// sortProcesses puts steps in pipeline order regardless of insertion order.
func sortProcesses(steps []models.ProcessStep) {
	slices.SortStableFunc(steps, func(a, b models.ProcessStep) int {
		return a.Name.Rank() - b.Name.Rank()
	})
}

// CreateOrder stores the header and its initial children in one transaction
// and sets o.ID.
func (s *Storage) CreateOrder(ctx context.Context, o *models.Order, processes []models.ProcessStep, materials []models.MaterialLine) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := companyExists(ctx, tx, o.CompanyID); err != nil {
			return err
		}

		id, err := insertID(ctx, tx, `
        INSERT INTO orders
            (company_id, title, qty, unit, client_deadline, final_deadline, status, version)
        VALUES
            (?, ?, ?, ?, ?, ?, ?, 1)`,
			o.CompanyID, o.Title, o.Qty, o.Unit, o.ClientDeadline, o.FinalDeadline, o.Status)
		if err != nil {
			return fmt.Errorf("insert order: %w", classify(err))
		}
		o.ID = id
		o.Version = 1

		if err := insertProcesses(ctx, tx, id, processes); err != nil {
			return err
		}
		return insertMaterials(ctx, tx, id, materials)
	})
}

// PatchOrder applies a sparse header update and full replacement of the
// children it carries, all in one transaction. The order row is locked first
// so concurrent patches to the same order run one after the other.
func (s *Storage) PatchOrder(ctx context.Context, id int64, p models.OrderPatch) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var version int
		err := tx.GetContext(ctx, &version, tx.Rebind(`SELECT version FROM orders WHERE id = ? FOR UPDATE`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order %d: %w", id, err)
		}
		if p.ExpectedVersion != nil && *p.ExpectedVersion != version {
			return ErrVersionMismatch
		}
		if p.CompanyID != nil {
			if err := companyExists(ctx, tx, *p.CompanyID); err != nil {
				return err
			}
		}

		sets := []string{"version = version + 1", "updated_at = CURRENT_TIMESTAMP"}
		var args []any
		set := func(column string, value any) {
			sets = append(sets, column+" = ?")
			args = append(args, value)
		}
		if p.CompanyID != nil {
			set("company_id", *p.CompanyID)
		}
		if p.Title != nil {
			set("title", *p.Title)
		}
		if p.Qty != nil {
			set("qty", *p.Qty)
		}
		if p.Unit != nil {
			set("unit", *p.Unit)
		}
		if p.ClientDeadline != nil {
			set("client_deadline", *p.ClientDeadline)
		}
		if p.FinalDeadline != nil {
			set("final_deadline", *p.FinalDeadline)
		}
		if p.Status != nil {
			set("status", *p.Status)
		}
		args = append(args, id)

		query := "UPDATE orders SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("update order %d: %w", id, classify(err))
		}

		if p.ReplaceProcesses {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM order_processes WHERE order_id = ?`), id); err != nil {
				return fmt.Errorf("clear processes of order %d: %w", id, err)
			}
			if err := insertProcesses(ctx, tx, id, p.Processes); err != nil {
				return err
			}
		}
		if p.ReplaceMaterials {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM order_materials WHERE order_id = ?`), id); err != nil {
				return fmt.Errorf("clear materials of order %d: %w", id, err)
			}
			if err := insertMaterials(ctx, tx, id, p.Materials); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertProcesses(ctx context.Context, tx *sqlx.Tx, orderID int64, steps []models.ProcessStep) error {
	if len(steps) == 0 {
		return nil
	}
	rows := make([]models.ProcessStep, len(steps))
	for i, st := range steps {
		st.OrderID = orderID
		rows[i] = st
	}
	query := `INSERT INTO order_processes (order_id, name, planned_date, done)
        VALUES (:order_id, :name, :planned_date, :done)`
	if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("insert processes of order %d: %w", orderID, classify(err))
	}
	return nil
}

func insertMaterials(ctx context.Context, tx *sqlx.Tx, orderID int64, lines []models.MaterialLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]models.MaterialLine, len(lines))
	for i, m := range lines {
		m.OrderID = orderID
		rows[i] = m
	}
	query := `INSERT INTO order_materials (order_id, description, qty, unit, in_stock)
        VALUES (:order_id, :description, :qty, :unit, :in_stock)`
	if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("insert materials of order %d: %w", orderID, classify(err))
	}
	return nil
}
