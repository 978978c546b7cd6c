package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"

	"facturier/internal/infrastructure/storage/postgres/migrations"
	"facturier/pkg/logger"
)

// Migration commands accepted by Migrate.
const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// Migrate runs a goose command against the embedded invoice migrations.
func Migrate(ctx context.Context, dsn, command string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{logger.FromContext(ctx).WithComponent("migrations")})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	switch command {
	case MigrateUp:
		err = goose.UpContext(ctx, db, ".")
		if errors.Is(err, goose.ErrNoNextVersion) {
			err = nil
		}
	case MigrateDown:
		err = goose.DownContext(ctx, db, ".")
	case MigrateStatus:
		err = goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}

// UpMigrations applies all pending migrations.
func UpMigrations(ctx context.Context, dsn string) error {
	return Migrate(ctx, dsn, MigrateUp)
}

// gooseLogger routes goose output through the application logger.
type gooseLogger struct {
	l *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Infof(strings.TrimSuffix(format, "\n"), v...)
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Fatalf(strings.TrimSuffix(format, "\n"), v...)
}
