package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"effortline/internal/db"
	"effortline/internal/migrate"
)

// OpenMigrated opens a fresh workspace database in a temp dir and applies
// every migration.
func OpenMigrated(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return conn
}
