package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_index.up.sql":      {Data: []byte("CREATE INDEX ...")},
		"0001_create_users.up.sql":   {Data: []byte("CREATE TABLE ...")},
		"0001_create_users.down.sql": {Data: []byte("DROP TABLE ...")},
		"README.md":                  {Data: []byte("notes")},
		"archive/0000_old.up.sql":    {Data: []byte("SELECT 1")},
	}

	names, err := ListMigrations(fsys, ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_create_users.up.sql", "0002_add_index.up.sql"}, names)
}

func TestListMigrations_MissingDir(t *testing.T) {
	_, err := ListMigrations(fstest.MapFS{}, "missing")
	assert.Error(t, err)
}

func TestIsUpMigration(t *testing.T) {
	assert.True(t, isUpMigration("0001_x.up.sql"))
	assert.False(t, isUpMigration("0001_x.down.sql"))
	assert.False(t, isUpMigration("0001_x.sql"))
}

func TestPendingMigrations(t *testing.T) {
	names := []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}

	assert.Equal(t, names, pendingMigrations(names, nil))
	assert.Equal(t, []string{"0003_c.up.sql"}, pendingMigrations(names, map[string]bool{
		"0001_a.up.sql": true,
		"0002_b.up.sql": true,
	}))
	assert.Empty(t, pendingMigrations(names, map[string]bool{
		"0001_a.up.sql": true,
		"0002_b.up.sql": true,
		"0003_c.up.sql": true,
	}))
}

func TestMigrator_ApplyFSNoMigrations(t *testing.T) {
	m := NewMigrator(nil, nil)

	assert.NoError(t, m.ApplyFS(context.Background(), fstest.MapFS{"README.md": {Data: []byte("x")}}))
}
