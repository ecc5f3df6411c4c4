package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrReference = errors.New("referenced record does not exist")
)

// Storage is the relational store behind companies, orders and users.
// Queries are written with ? placeholders and rebound for the driver in use.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the database and checks it answers.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return conn, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction. Any error or panic rolls it back, so the
// connection always goes back to the pool.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertID runs an INSERT and returns the generated id. Postgres has no
// LastInsertId, so RETURNING is used there.
func insertID(ctx context.Context, ext sqlx.ExtContext, query string, args ...any) (int64, error) {
	if ext.DriverName() == DriverPostgres {
		var id int64
		err := ext.QueryRowxContext(ctx, ext.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// classify maps driver errors for unique and foreign key violations to the
// package sentinels and leaves everything else as is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062:
			return fmt.Errorf("%w: %s", ErrConflict, me.Message)
		case 1451, 1452:
			return fmt.Errorf("%w: %s", ErrReference, me.Message)
		}
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pe.Message)
		case "23503":
			return fmt.Errorf("%w: %s", ErrReference, pe.Message)
		}
	}
	return err
}

// likePattern builds a case-insensitive substring pattern with LIKE
// wildcards in the input escaped.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}
