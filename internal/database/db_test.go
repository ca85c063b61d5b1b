package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planner.db")

	db, err := NewDB(path)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.SQL.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('history', 'execution_metrics')`,
	).Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, db.Close())

	// Reopening an up-to-date database is a no-op.
	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)
}
