package postgres

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"

	"github.com/phrazzld/wordmon-api/internal/platform/migrate"
)

// Dialect is the goose dialect of this backend.
const Dialect = "postgres"

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate runs a goose command ("up", "down", "status", "version") against db.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	return migrate.Run(ctx, db, Dialect, migrationFS, command, logger)
}
