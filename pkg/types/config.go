package types

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Config selects and parameterizes a repository backend.
type Config struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	DSN     string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	LogMode string `json:"log_mode" yaml:"log_mode" mapstructure:"log_mode"`
}

// Supported backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// SQLiteFile is the database file created under DataDir when no DSN is set.
const SQLiteFile = "repokit.db"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDSNMissing     = errors.New("backend needs a dsn or a data dir")
)

var knownBackends = map[string]bool{
	BackendMemory:   true,
	BackendSQLite:   true,
	BackendPostgres: true,
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return fmt.Errorf("%w: %q", ErrBackendUnknown, c.Backend)
	}
	switch c.Backend {
	case BackendSQLite:
		if c.DSN == "" && c.DataDir == "" {
			return fmt.Errorf("%w: %s", ErrDSNMissing, c.Backend)
		}
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("%w: %s", ErrDSNMissing, c.Backend)
		}
	}
	return nil
}

// ResolveDSN returns the connection string of a SQL backend. SQLite falls
// back to a file under DataDir.
func (c Config) ResolveDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Backend == BackendSQLite && c.DataDir != "" {
		return filepath.Join(c.DataDir, SQLiteFile)
	}
	return ""
}
