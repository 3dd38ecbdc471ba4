package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	DefaultDir             = "migrations"
	DefaultMigrationsTable = "schema_migrations"
)

type migrator interface {
	Up() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
}

var migratorFactory = func(sourceURL string, driver database.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects the migrations source and the bookkeeping table. Steps, when
// non-zero, applies (positive) or rolls back (negative) that many migrations
// instead of migrating all the way up.
type Config struct {
	Dir             string
	MigrationsTable string
	Steps           int
	Logger          Logger
}

// Up applies pending migrations. migrate.ErrNoChange counts as success.
func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	cfg.Steps = 0
	return run(ctx, db, cfg)
}

// Steps moves the schema by n migrations. n must be non-zero.
func Steps(ctx context.Context, db *sql.DB, cfg Config, n int) error {
	if n == 0 {
		return fmt.Errorf("migrations: steps must be non-zero")
	}
	cfg.Steps = n
	return run(ctx, db, cfg)
}

func run(ctx context.Context, db *sql.DB, cfg Config) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = DefaultDir
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = DefaultMigrationsTable
	}

	absDir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return fmt.Errorf("migrations: resolve dir: %w", err)
	}

	// ToSlash keeps Windows paths valid inside the file:// URL.
	sourceURL := (&url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absDir),
	}).String()

	driver, err := driverFactory(db, cfg)
	if err != nil {
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}

	m, err := migratorFactory(sourceURL, driver)
	if err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}
	closeOnce := sync.Once{}
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if cfg.Logger != nil {
				if srcErr != nil {
					cfg.Logger.Warn("Migrations source close error", "error", srcErr)
				}
				if dbErr != nil {
					cfg.Logger.Warn("Migrations db close error", "error", dbErr)
				}
			}
		})
	}
	defer closeMigrator()

	if cfg.Logger != nil {
		cfg.Logger.Info("Running SQL migrations", "dir", absDir, "table", cfg.MigrationsTable, "steps", cfg.Steps)
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.Steps != 0 {
			errCh <- m.Steps(cfg.Steps)
			return
		}
		errCh <- m.Up()
	}()

	select {
	case <-ctx.Done():
		// migrate has no context support; closing the migrator is the only way to interrupt it.
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				if cfg.Logger != nil {
					cfg.Logger.Info("No migrations to apply")
				}
				return nil
			}
			return fmt.Errorf("migrations: %s: %w", direction(cfg.Steps), err)
		}
	}

	if cfg.Logger != nil {
		attrs := []any{}
		if version, dirty, err := m.Version(); err == nil {
			attrs = append(attrs, "version", version, "dirty", dirty)
		}
		cfg.Logger.Info("Migrations applied successfully", attrs...)
	}
	return nil
}

func direction(steps int) string {
	switch {
	case steps < 0:
		return "down"
	case steps > 0:
		return "steps"
	default:
		return "up"
	}
}
