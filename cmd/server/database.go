package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/wordmon-api/internal/config"
	"github.com/phrazzld/wordmon-api/internal/platform/postgres"
	"github.com/phrazzld/wordmon-api/internal/platform/sqlite"
	"github.com/phrazzld/wordmon-api/internal/store"
	"github.com/phrazzld/wordmon-api/internal/task"
)

// openDatabase opens the configured backend.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg)
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func migrateDatabase(ctx context.Context, driver string, db *sql.DB, command string, log *slog.Logger) error {
	switch driver {
	case config.DriverPostgres:
		return postgres.Migrate(ctx, db, command, log)
	case config.DriverSQLite:
		return sqlite.Migrate(ctx, db, command, log)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

// profileStore is what the arena needs from the profile backend.
type profileStore interface {
	store.ProfileStore
	store.OpponentFinder
}

// stores is one backend's set of progression stores.
type stores struct {
	entries  store.WordEntryStore
	profiles profileStore
	tasks    task.TaskStore
}

func newStores(driver string, db *sql.DB, registry *task.Registry, log *slog.Logger) (*stores, error) {
	switch driver {
	case config.DriverPostgres:
		return &stores{
			entries:  postgres.NewPostgresWordEntryStore(db, log),
			profiles: postgres.NewPostgresProfileStore(db, log),
			tasks:    postgres.NewPostgresTaskStore(db, registry, log),
		}, nil
	case config.DriverSQLite:
		return &stores{
			entries:  sqlite.NewSQLiteWordEntryStore(db, log),
			profiles: sqlite.NewSQLiteProfileStore(db, log),
			tasks:    sqlite.NewSQLiteTaskStore(db, registry, log),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
