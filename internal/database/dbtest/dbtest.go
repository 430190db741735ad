// Package dbtest provides a migrated SQLite database for tests.
package dbtest

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/share-pet/share-pet/internal/database"
	"github.com/share-pet/share-pet/pkg/config"
)

// Open returns a fresh database in t's temp dir with the full schema applied.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite3",
		Name:   filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, database.Migrate(context.Background(), db, cfg.Driver, log))

	return db
}
