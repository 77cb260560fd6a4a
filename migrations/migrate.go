package migrations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Up applies all pending migrations using a database/sql handle borrowed from pool.
// The pool stays open; only the temporary *sql.DB wrapper is closed.
func Up(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(FS)
	goose.SetLogger(gooseLogger{log: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	if l.log != nil {
		l.log.Info("db.migrate", "detail", fmt.Sprintf(format, v...))
	}
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	if l.log != nil {
		l.log.Error("db.migrate.fatal", "detail", fmt.Sprintf(format, v...))
	}
}
