// Package repository is the public entry point: it builds a repository over
// the in-memory or the database backend from a registry and a Config, while
// keeping the backend implementations internal.
//
// Example:
//
//	repo, closer, err := repository.Open[sample.Model, sample.Create, sample.Update](ctx,
//	    types.Config{Backend: types.BackendSQLite, DataDir: ".repokit-db"},
//	    sample.Registry,
//	    repository.WithLogger(log),
//	    repository.WithTables(),
//	)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
package repository

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/repokit/internal/memory"
	"github.com/mesh-intelligence/repokit/internal/sqldb"
	"github.com/mesh-intelligence/repokit/pkg/schema"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

type options struct {
	log    *zap.Logger
	tables bool
}

// Option configures a repository.
type Option func(*options)

// WithLogger logs repository activity to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTables makes Open create the registry's tables when they are missing.
func WithTables() Option {
	return func(o *options) { o.tables = true }
}

func collect(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewMemory creates an empty in-memory repository.
func NewMemory[R schema.ReadSchema, C schema.CreateSchema, U schema.UpdateSchema](reg *schema.Registry, opts ...Option) (*memory.Repository[R, C, U], error) {
	o := collect(opts)
	return memory.New[R, C, U](reg, o.log)
}

// NewSQL creates a repository over an attached backend.
func NewSQL[R schema.ReadSchema, C schema.CreateSchema, U schema.UpdateSchema](b *sqldb.Backend, reg *schema.Registry, opts ...Option) (*sqldb.Repository[R, C, U], error) {
	o := collect(opts)
	return sqldb.NewRepository[R, C, U](b, reg, o.log)
}

// Open creates a repository over the backend cfg selects. The returned
// closer releases the backend; it is a no-op for the memory backend.
func Open[R schema.ReadSchema, C schema.CreateSchema, U schema.UpdateSchema](ctx context.Context, cfg types.Config, reg *schema.Registry, opts ...Option) (types.Repository[R, C, U], io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	o := collect(opts)

	if cfg.Backend == types.BackendMemory {
		repo, err := memory.New[R, C, U](reg, o.log)
		if err != nil {
			return nil, nil, err
		}
		return repo, nopCloser{}, nil
	}

	b := sqldb.NewBackend(o.log)
	if err := b.Attach(cfg); err != nil {
		return nil, nil, err
	}
	if o.tables {
		if err := sqldb.CreateTables(ctx, b, reg); err != nil {
			_ = b.Detach()
			return nil, nil, fmt.Errorf("preparing tables: %w", err)
		}
	}
	repo, err := sqldb.NewRepository[R, C, U](b, reg, o.log)
	if err != nil {
		_ = b.Detach()
		return nil, nil, err
	}
	return repo, b, nil
}
