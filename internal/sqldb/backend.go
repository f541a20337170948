// Package sqldb implements the repository contract over a relational
// database using joined-table inheritance: the root kind's table holds the
// id, the discriminator and the common columns, and every subtype's table
// holds the same id plus the subtype's own columns.
//
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx) are supported.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/repokit/internal/logger"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// Backend lifecycle errors.
var (
	ErrAlreadyAttached = errors.New("backend already attached")
	ErrDetached        = errors.New("backend detached")
)

// Backend owns the connection pool of one database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dialect  Dialect
	db       *sql.DB
	sessions *Sessions
	log      *zap.Logger
}

// NewBackend creates a backend. It is not attached; call Attach with a
// Config to open the database.
func NewBackend(log *zap.Logger) *Backend {
	return &Backend{log: logger.OrNop(log)}
}

// Attach opens the database described by config.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	d, err := DialectFor(config.Backend)
	if err != nil {
		return err
	}

	dsn := config.ResolveDSN()
	if config.Backend == types.BackendSQLite && config.DSN == "" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
	}

	db, err := sql.Open(d.DriverName(), d.PrepareDSN(dsn))
	if err != nil {
		return fmt.Errorf("opening %s: %w", d.Name(), err)
	}
	if n := d.MaxConns(); n > 0 {
		db.SetMaxOpenConns(n)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return fmt.Errorf("connecting to %s: %w", d.Name(), err)
	}

	b.db = db
	b.config = config
	b.dialect = d
	b.sessions = NewSessions(db)
	b.attached = true
	b.log.Info("attached backend", zap.String("backend", d.Name()), zap.String("dsn", logger.RedactDSN(dsn)))
	return nil
}

// Detach closes the database. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", b.dialect.Name(), err)
	}
	b.db = nil
	b.sessions = nil
	b.attached = false
	b.log.Info("detached backend", zap.String("backend", b.dialect.Name()))
	return nil
}

// Close detaches the backend.
func (b *Backend) Close() error {
	return b.Detach()
}

// Sessions returns the unit of work provider.
// Returns ErrDetached if the backend is not attached.
func (b *Backend) Sessions() (*Sessions, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, ErrDetached
	}
	return b.sessions, nil
}

// Dialect returns the dialect of the attached database.
// Returns ErrDetached if the backend is not attached.
func (b *Backend) Dialect() (Dialect, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, ErrDetached
	}
	return b.dialect, nil
}

func (b *Backend) handles() (*Sessions, Dialect, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, nil, ErrDetached
	}
	return b.sessions, b.dialect, nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}
