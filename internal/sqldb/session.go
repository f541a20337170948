package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is the part of *sql.DB and *sql.Tx the repository uses.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// Sessions provides units of work over one database. A unit of work lives in
// the context: every repository call made with that context joins it.
type Sessions struct {
	db *sql.DB
}

// NewSessions wraps db.
func NewSessions(db *sql.DB) *Sessions {
	return &Sessions{db: db}
}

type unitKey struct{}

type unit struct {
	tx    *sql.Tx
	depth int
}

func unitFrom(ctx context.Context) *unit {
	u, _ := ctx.Value(unitKey{}).(*unit)
	return u
}

// InTx reports whether ctx carries a unit of work.
func InTx(ctx context.Context) bool {
	return unitFrom(ctx) != nil
}

// Executor returns the transaction carried by ctx, or the database itself.
func (s *Sessions) Executor(ctx context.Context) DBTX {
	if u := unitFrom(ctx); u != nil {
		return u.tx
	}
	return s.db
}

// WithTx runs fn inside a unit of work. The outermost call begins a
// transaction, commits it when fn returns nil and rolls it back on error or
// panic. Nested calls use a savepoint, so a failed inner call leaves the
// outer unit of work usable.
func (s *Sessions) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.WithTxOptions(ctx, nil, fn)
}

// WithTxOptions is WithTx with the options of the transaction it begins.
// A nested call joins the outer transaction and ignores opts.
func (s *Sessions) WithTxOptions(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if u := unitFrom(ctx); u != nil {
		return s.nested(ctx, u, fn)
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, unitKey{}, &unit{tx: tx})); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Sessions) nested(ctx context.Context, outer *unit, fn func(ctx context.Context) error) (err error) {
	inner := &unit{tx: outer.tx, depth: outer.depth + 1}
	name := fmt.Sprintf("repokit_sp_%d", inner.depth)

	if _, err := outer.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_, _ = outer.tx.ExecContext(context.WithoutCancel(ctx), "ROLLBACK TO SAVEPOINT "+name)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, unitKey{}, inner)); err != nil {
		bg := context.WithoutCancel(ctx)
		if _, rbErr := outer.tx.ExecContext(bg, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back to savepoint: %w", rbErr))
		}
		_, _ = outer.tx.ExecContext(bg, "RELEASE SAVEPOINT "+name)
		return err
	}
	if _, err := outer.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	return nil
}
