package sqldb

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/repokit/pkg/schema"
)

// TableDDL returns the CREATE statements of a registry's tables, root first.
func TableDDL(reg *schema.Registry, d Dialect) []string {
	root := reg.Root()
	idType := d.ColumnType(schema.Field{Column: schema.IDColumn, Type: uuidType})

	cols := []string{
		fmt.Sprintf("%s %s PRIMARY KEY", Quote(schema.IDColumn), idType),
		fmt.Sprintf("%s TEXT NOT NULL", Quote(schema.Discriminator)),
	}
	for _, f := range root.Own {
		cols = append(cols, fmt.Sprintf("%s %s NOT NULL", Quote(f.Column), d.ColumnType(f)))
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", Quote(root.Table), strings.Join(cols, ",\n    ")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			Quote(root.Table+"_"+schema.Discriminator+"_idx"), Quote(root.Table), Quote(schema.Discriminator)),
	}

	for _, e := range reg.Subtypes() {
		cols := []string{fmt.Sprintf("%s %s PRIMARY KEY REFERENCES %s (%s) ON DELETE CASCADE",
			Quote(schema.IDColumn), idType, Quote(root.Table), Quote(schema.IDColumn))}
		for _, f := range e.Own {
			cols = append(cols, fmt.Sprintf("%s %s NOT NULL", Quote(f.Column), d.ColumnType(f)))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", Quote(e.Table), strings.Join(cols, ",\n    ")))
	}
	return stmts
}

// CreateTables creates the tables of reg if they do not exist. It does not
// alter tables that exist with another layout.
func CreateTables(ctx context.Context, b *Backend, reg *schema.Registry) error {
	s, d, err := b.handles()
	if err != nil {
		return err
	}
	return s.WithTx(ctx, func(ctx context.Context) error {
		for _, stmt := range TableDDL(reg, d) {
			if _, err := s.Executor(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("creating tables: %w", err)
			}
		}
		return nil
	})
}

// DropTables drops the tables of reg, subtypes first.
func DropTables(ctx context.Context, b *Backend, reg *schema.Registry) error {
	s, _, err := b.handles()
	if err != nil {
		return err
	}
	entries := slices.Clone(reg.Entries())
	slices.Reverse(entries)
	return s.WithTx(ctx, func(ctx context.Context) error {
		for _, e := range entries {
			if _, err := s.Executor(ctx).ExecContext(ctx, "DROP TABLE IF EXISTS "+Quote(e.Table)); err != nil {
				return fmt.Errorf("dropping table %s: %w", e.Table, err)
			}
		}
		return nil
	})
}
