package migrations_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/storage/sqlite/migrations"
)

func TestMigratorUp(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(err)
	defer db.Close()

	m, err := migrations.NewMigrator(db, log.Noop)
	require.NoError(err)

	// New databases get the latest schema and reopening keeps it.
	for range 2 {
		version, err := m.Up(ctx)
		require.NoError(err)
		assert.Equal(uint(1), version)
	}

	var tables []string
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	require.NoError(err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(rows.Err())
	assert.Equal([]string{"runs", migrations.VersionTable}, tables)
}

func TestMigratorUpCanceled(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	m, err := migrations.NewMigrator(db, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Up(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMigratorRequiresDB(t *testing.T) {
	_, err := migrations.NewMigrator(nil, log.Noop)
	assert.Error(t, err)
}
