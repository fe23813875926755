package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/wordmon-api/internal/platform/migrate"
	"github.com/phrazzld/wordmon-api/internal/platform/postgres"
	"github.com/phrazzld/wordmon-api/internal/platform/sqlite"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds setup operations.
const TestTimeout = 10 * time.Second

// DatabaseURL returns the PostgreSQL URL for integration tests, or "".
func DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("WORDMON_TEST_DB_URL")
}

// ShouldSkipDatabaseTest reports whether no PostgreSQL instance is configured.
func ShouldSkipDatabaseTest() bool {
	return DatabaseURL() == ""
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenSQLite returns a fresh, migrated in-memory SQLite database that is
// closed when the test ends.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err, "failed to open sqlite")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, sqlite.Migrate(ctx, db, migrate.CommandUp, quietLogger()), "failed to migrate sqlite")
	return db
}

// GetTestDBWithT connects to PostgreSQL and applies migrations, skipping the
// test if DATABASE_URL is not set.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	if ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open(postgres.DriverName, DatabaseURL())
	require.NoError(t, err, "failed to open database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to ping database")
	require.NoError(t, postgres.Migrate(ctx, db, migrate.CommandUp, quietLogger()), "failed to migrate database")
	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}
