package types

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "mysql", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:   "memory needs nothing else",
			config: Config{Backend: BackendMemory},
		},
		{
			name:   "sqlite with data dir",
			config: Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
		},
		{
			name:   "sqlite with dsn",
			config: Config{Backend: BackendSQLite, DSN: "file::memory:"},
		},
		{
			name:    "sqlite without dsn or data dir",
			config:  Config{Backend: BackendSQLite},
			wantErr: ErrDSNMissing,
		},
		{
			name:   "postgres with dsn",
			config: Config{Backend: BackendPostgres, DSN: "postgres://localhost/repokit"},
		},
		{
			name:    "postgres ignores data dir",
			config:  Config{Backend: BackendPostgres, DataDir: "/tmp/data"},
			wantErr: ErrDSNMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigResolveDSN(t *testing.T) {
	assert.Equal(t, "x.db", Config{Backend: BackendSQLite, DSN: "x.db", DataDir: "/d"}.ResolveDSN())
	assert.Equal(t, filepath.Join("/d", SQLiteFile), Config{Backend: BackendSQLite, DataDir: "/d"}.ResolveDSN())
	assert.Empty(t, Config{Backend: BackendPostgres, DataDir: "/d"}.ResolveDSN())
	assert.Empty(t, Config{Backend: BackendMemory}.ResolveDSN())
}
