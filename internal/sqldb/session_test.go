package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertParent(ctx context.Context, s *Sessions, str string) error {
	_, err := s.Executor(ctx).ExecContext(ctx,
		`INSERT INTO "crud_parent_model" ("id", "type", "str_column", "int_column") VALUES (?, 'parent', ?, 0)`,
		uuid.NewString(), str)
	return err
}

func parentStrs(t *testing.T, ctx context.Context, s *Sessions) []string {
	t.Helper()
	rows, err := s.Executor(ctx).QueryContext(ctx, `SELECT "str_column" FROM "crud_parent_model" ORDER BY "str_column"`)
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var str string
		require.NoError(t, rows.Scan(&str))
		out = append(out, str)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestWithTx(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		run     func(ctx context.Context, s *Sessions) error
		wantErr error
		want    []string
	}{
		{
			name: "commit",
			run: func(ctx context.Context, s *Sessions) error {
				return s.WithTx(ctx, func(ctx context.Context) error {
					if !InTx(ctx) {
						return errors.New("no unit of work in context")
					}
					if err := insertParent(ctx, s, "a"); err != nil {
						return err
					}
					return insertParent(ctx, s, "b")
				})
			},
			want: []string{"a", "b"},
		},
		{
			name: "rollback on error",
			run: func(ctx context.Context, s *Sessions) error {
				return s.WithTx(ctx, func(ctx context.Context) error {
					if err := insertParent(ctx, s, "a"); err != nil {
						return err
					}
					return errBoom
				})
			},
			wantErr: errBoom,
		},
		{
			name: "failed nested unit rolls back to its savepoint",
			run: func(ctx context.Context, s *Sessions) error {
				return s.WithTx(ctx, func(ctx context.Context) error {
					if err := insertParent(ctx, s, "outer"); err != nil {
						return err
					}
					err := s.WithTx(ctx, func(ctx context.Context) error {
						if err := insertParent(ctx, s, "inner"); err != nil {
							return err
						}
						return errBoom
					})
					if !errors.Is(err, errBoom) {
						return errors.New("nested error lost")
					}
					return insertParent(ctx, s, "after")
				})
			},
			want: []string{"after", "outer"},
		},
		{
			name: "nested units commit with the outer one",
			run: func(ctx context.Context, s *Sessions) error {
				return s.WithTx(ctx, func(ctx context.Context) error {
					return s.WithTx(ctx, func(ctx context.Context) error {
						return s.WithTx(ctx, func(ctx context.Context) error {
							return insertParent(ctx, s, "deep")
						})
					})
				})
			},
			want: []string{"deep"},
		},
		{
			name: "outer failure discards released savepoints",
			run: func(ctx context.Context, s *Sessions) error {
				return s.WithTx(ctx, func(ctx context.Context) error {
					if err := s.WithTx(ctx, func(ctx context.Context) error {
						return insertParent(ctx, s, "inner")
					}); err != nil {
						return err
					}
					return errBoom
				})
			},
			wantErr: errBoom,
		},
		{
			name: "nested call with options joins the outer unit",
			run: func(ctx context.Context, s *Sessions) error {
				return s.WithTx(ctx, func(ctx context.Context) error {
					if err := insertParent(ctx, s, "outer"); err != nil {
						return err
					}
					opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
					return s.WithTxOptions(ctx, opts, func(ctx context.Context) error {
						return insertParent(ctx, s, "inner")
					})
				})
			},
			want: []string{"inner", "outer"},
		},
		{
			name: "options of the outermost call",
			run: func(ctx context.Context, s *Sessions) error {
				return s.WithTxOptions(ctx, sqliteDialect{}.ReadTx(), func(ctx context.Context) error {
					return insertParent(ctx, s, "plain")
				})
			},
			want: []string{"plain"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := setupBackend(t)
			s, err := b.Sessions()
			require.NoError(t, err)

			err = tt.run(ctx, s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, parentStrs(t, ctx, s))
			assert.False(t, InTx(ctx))
		})
	}
}

func TestWithTxPanic(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	s, err := b.Sessions()
	require.NoError(t, err)

	assert.PanicsWithValue(t, "boom", func() {
		_ = s.WithTx(ctx, func(ctx context.Context) error {
			if err := insertParent(ctx, s, "doomed"); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Empty(t, parentStrs(t, ctx, s))

	err = s.WithTx(ctx, func(ctx context.Context) error {
		if err := insertParent(ctx, s, "kept"); err != nil {
			return err
		}
		assert.Panics(t, func() {
			_ = s.WithTx(ctx, func(ctx context.Context) error {
				_ = insertParent(ctx, s, "nested doomed")
				panic("nested")
			})
		})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, parentStrs(t, ctx, s))
}

func TestWithTxCancelled(t *testing.T) {
	b := setupBackend(t)
	s, err := b.Sessions()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	err = s.WithTx(ctx, func(ctx context.Context) error {
		if err := insertParent(ctx, s, "outer"); err != nil {
			return err
		}
		if err := s.WithTx(ctx, func(ctx context.Context) error {
			return insertParent(ctx, s, "inner")
		}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, sql.ErrTxDone), "got %v", err)
	assert.Empty(t, parentStrs(t, context.Background(), s))
}
