package sqldb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/repokit/internal/sample"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// setupBackend attaches a SQLite backend in a temp directory and creates the
// sample tables.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend(nil)
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}
	require.NoError(t, b.Attach(cfg))
	t.Cleanup(func() { b.Detach() })
	require.NoError(t, CreateTables(context.Background(), b, sample.Registry))
	return b
}

func TestBackendAttach(t *testing.T) {
	tests := []struct {
		name    string
		config  func(dir string) types.Config
		wantErr error
	}{
		{
			name: "sqlite in a data dir",
			config: func(dir string) types.Config {
				return types.Config{Backend: types.BackendSQLite, DataDir: filepath.Join(dir, "nested", "db")}
			},
		},
		{
			name: "sqlite with an explicit dsn",
			config: func(dir string) types.Config {
				return types.Config{Backend: types.BackendSQLite, DSN: "file:" + filepath.Join(dir, "explicit.db")}
			},
		},
		{
			name:    "missing backend",
			config:  func(string) types.Config { return types.Config{} },
			wantErr: types.ErrBackendEmpty,
		},
		{
			name:    "memory is not a sql backend",
			config:  func(string) types.Config { return types.Config{Backend: types.BackendMemory} },
			wantErr: types.ErrBackendUnknown,
		},
		{
			name:    "postgres without dsn",
			config:  func(string) types.Config { return types.Config{Backend: types.BackendPostgres} },
			wantErr: types.ErrDSNMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend(nil)
			err := b.Attach(tt.config(t.TempDir()))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, err := b.Sessions()
				assert.ErrorIs(t, err, ErrDetached)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { b.Detach() })

			d, err := b.Dialect()
			require.NoError(t, err)
			assert.Equal(t, types.BackendSQLite, d.Name())
		})
	}
}

func TestBackendAttachCreatesDatabaseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	b := NewBackend(nil)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(dir, types.SQLiteFile))
	assert.NoError(t, err)
	assert.Equal(t, dir, b.Config().DataDir)
}

func TestBackendLifecycle(t *testing.T) {
	b := setupBackend(t)

	err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrAlreadyAttached)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach is idempotent")

	_, err = b.Sessions()
	assert.ErrorIs(t, err, ErrDetached)
	_, err = b.Dialect()
	assert.ErrorIs(t, err, ErrDetached)
	assert.ErrorIs(t, CreateTables(context.Background(), b, sample.Registry), ErrDetached)

	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}), "a detached backend can attach again")
	require.NoError(t, b.Close())
}
