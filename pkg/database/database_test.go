package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_RunEmbedded(t *testing.T) {
	db := newTestDB(t)
	m := NewMigrator(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, m.RunEmbedded(ctx))
	// Second run is a no-op
	require.NoError(t, m.RunEmbedded(ctx))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	_, err := db.Exec(`INSERT INTO documents (collection, id, data) VALUES ('clubs', 'c1', '{"name":"Chess"}')`)
	assert.NoError(t, err)

	_, err = db.Exec(`INSERT INTO documents (collection, id, data) VALUES ('clubs', 'c2', 'not json')`)
	assert.Error(t, err, "data column must hold valid JSON")
}

func TestMigrator_Run_OrdersByVersion(t *testing.T) {
	db := newTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"002_add_column.sql": {Data: []byte("ALTER TABLE t ADD COLUMN b TEXT;")},
		"001_create.sql":     {Data: []byte("CREATE TABLE t (a TEXT);")},
		"README.md":          {Data: []byte("ignored")},
	}

	require.NoError(t, m.Run(context.Background(), fsys))

	rows, err := db.Query("SELECT version, name FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var v int
		var n string
		require.NoError(t, rows.Scan(&v, &n))
		names = append(names, n)
	}
	assert.Equal(t, []string{"create", "add_column"}, names)
}

func TestMigrator_Run_InvalidFilename(t *testing.T) {
	db := newTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"init.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
	}

	err := m.Run(context.Background(), fsys)
	assert.Error(t, err)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := newTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ok (a TEXT); THIS IS NOT SQL;")},
	}

	require.Error(t, m.Run(context.Background(), fsys))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "app.db")

	db, err := New(Config{Path: path}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.FileExists(t, path)

	_, err = New(Config{}, zap.NewNop())
	assert.Error(t, err)
}
