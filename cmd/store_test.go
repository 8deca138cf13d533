package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urbancover/internal/config"
	"github.com/sells-group/urbancover/internal/store"
)

func TestInitStore_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	require.NoError(t, migrateStore(context.Background(), st))
	_, ok := st.(store.Migrator)
	assert.True(t, ok)
}

func TestInitStore_SQLiteDefaultDSN(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(origDir) //nolint:errcheck

	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, migrateStore(context.Background(), st))

	_, err = os.Stat(filepath.Join(tmpDir, "urbancover.db"))
	assert.NoError(t, err)
}

func TestInitStore_Local(t *testing.T) {
	root := t.TempDir()
	cfg = &config.Config{Store: config.StoreConfig{Driver: "local", Root: root}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	local, ok := st.(*store.LocalStore)
	require.True(t, ok)
	assert.Equal(t, root, local.Root)

	// Object stores have no schema.
	assert.NoError(t, migrateStore(context.Background(), st))
}

func TestInitStore_HTTP(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{
		Driver: "http",
		HTTP:   config.HTTPConfig{BaseURL: "http://localhost:9000/docs", Rate: 5, Burst: 2, TimeoutSecs: 5},
	}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	_, ok := st.(*store.HTTPStore)
	assert.True(t, ok)
}

func TestInitStore_HTTPMissingBaseURL(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "http"}}

	_, err := initStore(context.Background())
	assert.Error(t, err)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mongo"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}
