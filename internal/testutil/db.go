// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-calendar/internal/database"
)

// OpenDB returns a migrated SQLite database in a temp dir.  It is closed
// when the test finishes.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Options{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite"))
	return db
}
