package sqldb

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mesh-intelligence/repokit/pkg/schema"
)

// mapping is the joined-table view of a registry: one SELECT over the root
// table LEFT JOINed with every subtype table, and the SQL expression of every
// sortable or searchable field.
type mapping struct {
	reg     *schema.Registry
	dialect Dialect

	// from is the FROM clause with the joins.
	from string
	// columns is the select list.
	columns []string
	// slots maps each kind to the select list positions of its read columns.
	slots map[*schema.Entry][]slot
	// fields maps field names to their SQL expression.
	fields map[string]fieldExpr
}

type slot struct {
	column string
	pos    int
}

type fieldExpr struct {
	sql  string
	text bool
}

const (
	posID   = 0
	posKind = 1
)

func newMapping(reg *schema.Registry, d Dialect) *mapping {
	root := reg.Root()
	rootTable := Quote(root.Table)
	qualified := func(e *schema.Entry, column string) string {
		return Quote(e.Table) + "." + Quote(column)
	}

	m := &mapping{
		reg:     reg,
		dialect: d,
		slots:   make(map[*schema.Entry][]slot),
		fields:  make(map[string]fieldExpr),
	}

	var from strings.Builder
	from.WriteString(rootTable)
	for _, e := range reg.Subtypes() {
		fmt.Fprintf(&from, " LEFT JOIN %s ON %s = %s", Quote(e.Table), qualified(e, schema.IDColumn), qualified(root, schema.IDColumn))
	}
	m.from = from.String()

	m.columns = append(m.columns, qualified(root, schema.IDColumn), qualified(root, schema.Discriminator))
	m.fields[schema.IDColumn] = fieldExpr{sql: m.columns[posID], text: true}
	m.fields[schema.Discriminator] = fieldExpr{sql: m.columns[posKind], text: true}

	common := []slot{{column: schema.IDColumn, pos: posID}}
	for _, f := range root.Own {
		common = append(common, slot{column: f.Column, pos: len(m.columns)})
		m.columns = append(m.columns, qualified(root, f.Column))
		m.fields[f.Column] = fieldExpr{sql: qualified(root, f.Column), text: isText(f.Type)}
	}
	m.slots[root] = common

	for _, e := range reg.Subtypes() {
		slots := append([]slot(nil), common...)
		for _, f := range e.Own {
			slots = append(slots, slot{column: f.Column, pos: len(m.columns)})
			m.columns = append(m.columns, qualified(e, f.Column))
		}
		m.slots[e] = slots
	}

	for _, e := range reg.Subtypes() {
		for _, f := range e.Own {
			if _, done := m.fields[f.Column]; done {
				continue
			}
			owners := reg.Owners(f.Column)
			exprs := make([]string, len(owners))
			for i, o := range owners {
				exprs[i] = qualified(o, f.Column)
			}
			sql := exprs[0]
			if len(exprs) > 1 {
				sql = "COALESCE(" + strings.Join(exprs, ", ") + ")"
			}
			m.fields[f.Column] = fieldExpr{sql: sql, text: isText(f.Type)}
		}
	}
	return m
}

// selectSQL returns the SELECT of every read column with an optional
// trailing clause.
func (m *mapping) selectSQL(tail string) string {
	q := "SELECT " + strings.Join(m.columns, ", ") + " FROM " + m.from
	if tail != "" {
		q += " " + tail
	}
	return q
}

// idExpr is the qualified root id column.
func (m *mapping) idExpr() string {
	return m.columns[posID]
}

// orderExpr renders one ORDER BY term. NULLs sort first ascending and last
// descending, the way Go's comparison of missing values does.
func (m *mapping) orderExpr(field string, desc bool) string {
	f := m.fields[field]
	expr := f.sql
	if f.text {
		expr = m.dialect.Collate(expr)
	}
	if desc {
		return expr + " DESC NULLS LAST"
	}
	return expr + " ASC NULLS FIRST"
}

// decode builds the read value of one scanned row.
func (m *mapping) decode(dest []any) (any, error) {
	var tag string
	if err := schema.Assign(reflect.ValueOf(&tag).Elem(), dest[posKind]); err != nil {
		return nil, fmt.Errorf("reading discriminator: %w", err)
	}
	e, err := m.reg.Lookup(tag)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(m.slots[e]))
	for _, s := range m.slots[e] {
		values[s.column] = dest[s.pos]
	}
	return e.NewRead(values)
}

// binder accumulates bind arguments and renders their placeholders.
type binder struct {
	dialect Dialect
	args    []any
}

func (b *binder) bind(v any) (string, error) {
	enc, err := encode(v)
	if err != nil {
		return "", err
	}
	b.args = append(b.args, enc)
	return b.dialect.Placeholder(len(b.args)), nil
}

// list binds vs and returns the comma separated placeholders.
func (b *binder) list(vs []any) (string, error) {
	marks := make([]string, len(vs))
	for i, v := range vs {
		mark, err := b.bind(v)
		if err != nil {
			return "", err
		}
		marks[i] = mark
	}
	return strings.Join(marks, ", "), nil
}
