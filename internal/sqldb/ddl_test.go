package sqldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/repokit/internal/sample"
)

func TestTableDDL(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		stmts := TableDDL(sample.Registry, sqliteDialect{})
		require.Len(t, stmts, 4)
		assert.Equal(t, `CREATE TABLE IF NOT EXISTS "crud_parent_model" (
    "id" TEXT PRIMARY KEY,
    "type" TEXT NOT NULL,
    "str_column" TEXT NOT NULL,
    "int_column" INTEGER NOT NULL
)`, stmts[0])
		assert.Equal(t, `CREATE INDEX IF NOT EXISTS "crud_parent_model_type_idx" ON "crud_parent_model" ("type")`, stmts[1])
		assert.Equal(t, `CREATE TABLE IF NOT EXISTS "crud_child_a_model" (
    "id" TEXT PRIMARY KEY REFERENCES "crud_parent_model" ("id") ON DELETE CASCADE,
    "float_column" REAL NOT NULL
)`, stmts[2])
		assert.Equal(t, `CREATE TABLE IF NOT EXISTS "crud_child_b_model" (
    "id" TEXT PRIMARY KEY REFERENCES "crud_parent_model" ("id") ON DELETE CASCADE,
    "bool_column" BOOLEAN NOT NULL
)`, stmts[3])
	})

	t.Run("postgres", func(t *testing.T) {
		stmts := TableDDL(sample.Registry, postgresDialect{})
		require.Len(t, stmts, 4)
		assert.Contains(t, stmts[0], `"str_column" VARCHAR(100) NOT NULL`)
		assert.Contains(t, stmts[0], `"int_column" BIGINT NOT NULL`)
		assert.Contains(t, stmts[2], `"float_column" DOUBLE PRECISION NOT NULL`)
	})
}

func TestCreateAndDropTables(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	s, err := b.Sessions()
	require.NoError(t, err)

	tables := func() []string {
		rows, err := s.Executor(ctx).QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
		require.NoError(t, err)
		defer rows.Close()
		var names []string
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			names = append(names, name)
		}
		require.NoError(t, rows.Err())
		return names
	}

	want := []string{sample.TableChildA, sample.TableChildB, sample.TableParent}
	assert.Equal(t, want, tables())

	require.NoError(t, CreateTables(ctx, b, sample.Registry), "creating twice is a no-op")
	assert.Equal(t, want, tables())

	require.NoError(t, DropTables(ctx, b, sample.Registry))
	assert.Empty(t, tables())
	require.NoError(t, DropTables(ctx, b, sample.Registry), "dropping missing tables is a no-op")
}
