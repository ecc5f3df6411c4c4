package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed mysql/*.sql postgres/*.sql
var files embed.FS

// Run applies every pending migration for the given driver ("mysql" or
// "postgres"). Each driver has its own directory of scripts.
func Run(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	goose.SetBaseFS(files)
	goose.SetLogger(gooseLogger{logger.With("cmp", "migrations")})

	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	logger.Info("running migrations", "dir", driver)
	if err := goose.UpContext(ctx, db, driver); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}
