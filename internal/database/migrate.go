package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/careercoach/coach/internal/config"
)

// RunMigrations applies all pending up-migrations from cfg.MigrationsPath.
func RunMigrations(cfg config.DBConfig) error {
	return MigrateUp(cfg.DSN(), cfg.MigrationsPath)
}

// MigrateUp applies the migrations in dir against dsn. A database that is
// already current is not an error.
func MigrateUp(dsn, dir string) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", dir), dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	ver, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at migration version %d", ver)
	}
	slog.Info("database migrations applied", "version", ver, "dir", dir)
	return nil
}
