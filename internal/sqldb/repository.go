package sqldb

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/repokit/internal/logger"
	"github.com/mesh-intelligence/repokit/internal/query"
	"github.com/mesh-intelligence/repokit/pkg/schema"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// maxParams bounds the bind arguments of one statement, below SQLite's
// historical limit of 999.
const maxParams = 900

// Repository implements types.Repository over a Backend. Every mutation runs
// in a unit of work; calls made with a context that already carries one join
// it through a savepoint.
type Repository[R schema.ReadSchema, C schema.CreateSchema, U schema.UpdateSchema] struct {
	b   *Backend
	reg *schema.Registry
	m   *mapping
	log *zap.Logger
}

// NewRepository creates a repository over an attached backend.
func NewRepository[R schema.ReadSchema, C schema.CreateSchema, U schema.UpdateSchema](b *Backend, reg *schema.Registry, log *zap.Logger) (*Repository[R, C, U], error) {
	if err := reg.Implements(reflect.TypeFor[R]()); err != nil {
		return nil, err
	}
	d, err := b.Dialect()
	if err != nil {
		return nil, err
	}
	return &Repository[R, C, U]{
		b:   b,
		reg: reg,
		m:   newMapping(reg, d),
		log: logger.OrNop(log).With(zap.String("backend", d.Name()), zap.String("root", reg.Root().Tag)),
	}, nil
}

// Sessions returns the unit of work provider of the repository's backend.
func (r *Repository[R, C, U]) Sessions() (*Sessions, error) {
	return r.b.Sessions()
}

// record is a create payload resolved to its kind.
type record struct {
	entry *schema.Entry
	id    uuid.UUID
	// row holds every read column of the kind, zero where the payload is
	// silent.
	row map[string]any
	// given holds only the payload's columns.
	given map[string]any
}

func (r *Repository[R, C, U]) record(c C) (record, error) {
	e, err := r.reg.ResolveCreate(c)
	if err != nil {
		return record{}, err
	}
	given := e.CreateLayout.Values(c)
	v, err := e.NewRead(given)
	if err != nil {
		return record{}, err
	}
	if _, ok := v.(R); !ok {
		return record{}, fmt.Errorf("%w: %T is not %s", schema.ErrInvalidSchema, v, reflect.TypeFor[R]())
	}
	return record{entry: e, id: c.ModelID(), row: e.ReadLayout.Values(v), given: given}, nil
}

// scan runs a select and decodes every row.
func (r *Repository[R, C, U]) scan(ctx context.Context, exec DBTX, q string, args ...any) ([]R, error) {
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying models: %w", err)
	}
	defer rows.Close()

	dest := make([]any, len(r.m.columns))
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	var out []R
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning model: %w", err)
		}
		v, err := r.m.decode(dest)
		if err != nil {
			return nil, err
		}
		m, ok := v.(R)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not %s", schema.ErrInvalidSchema, v, reflect.TypeFor[R]())
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating models: %w", err)
	}
	return out, nil
}

// fetch reads the aggregates with the given ids.
func (r *Repository[R, C, U]) fetch(ctx context.Context, exec DBTX, ids []uuid.UUID) ([]R, error) {
	var out []R
	for chunk := range chunks(ids, maxParams) {
		b := binder{dialect: r.m.dialect}
		marks, err := b.list(anySlice(chunk))
		if err != nil {
			return nil, err
		}
		ms, err := r.scan(ctx, exec, r.m.selectSQL(fmt.Sprintf("WHERE %s IN (%s)", r.m.idExpr(), marks)), b.args...)
		if err != nil {
			return nil, err
		}
		out = append(out, ms...)
	}
	return out, nil
}

func (r *Repository[R, C, U]) getOrNone(ctx context.Context, exec DBTX, id uuid.UUID) (R, bool, error) {
	var zero R
	ms, err := r.fetch(ctx, exec, []uuid.UUID{id})
	if err != nil || len(ms) == 0 {
		return zero, false, err
	}
	return ms[0], true, nil
}

func (r *Repository[R, C, U]) get(ctx context.Context, exec DBTX, id uuid.UUID) (R, error) {
	m, ok, err := r.getOrNone(ctx, exec, id)
	if err == nil && !ok {
		err = types.NewNotFoundError(id)
	}
	return m, err
}

// Get retrieves the aggregate with the given id.
func (r *Repository[R, C, U]) Get(ctx context.Context, id uuid.UUID) (R, error) {
	s, err := r.b.Sessions()
	if err != nil {
		var zero R
		return zero, err
	}
	return r.get(ctx, s.Executor(ctx), id)
}

// GetOrNone retrieves the aggregate with the given id if it exists.
func (r *Repository[R, C, U]) GetOrNone(ctx context.Context, id uuid.UUID) (R, bool, error) {
	s, err := r.b.Sessions()
	if err != nil {
		var zero R
		return zero, false, err
	}
	return r.getOrNone(ctx, s.Executor(ctx), id)
}

// GetByIDs retrieves the aggregates found among ids.
func (r *Repository[R, C, U]) GetByIDs(ctx context.Context, ids []uuid.UUID, exact bool) ([]R, error) {
	s, err := r.b.Sessions()
	if err != nil {
		return nil, err
	}
	ids = distinct(ids)
	found, err := r.fetch(ctx, s.Executor(ctx), ids)
	if err != nil {
		return nil, err
	}
	if exact && len(found) < len(ids) {
		return nil, types.NewNotFoundError(missing(ids, found)...)
	}
	if found == nil {
		found = []R{}
	}
	return found, nil
}

// GetAll returns every stored aggregate.
func (r *Repository[R, C, U]) GetAll(ctx context.Context) ([]R, error) {
	s, err := r.b.Sessions()
	if err != nil {
		return nil, err
	}
	out, err := r.scan(ctx, s.Executor(ctx), r.m.selectSQL(""))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []R{}
	}
	return out, nil
}

// Paginate filters, sorts and slices the stored aggregates in SQL.
func (r *Repository[R, C, U]) Paginate(ctx context.Context, page types.Pagination, q types.PageQuery) (types.PaginationResult[R], error) {
	var res types.PaginationResult[R]
	plan, err := query.Prepare(r.reg, page, q)
	if err != nil {
		return res, err
	}
	s, err := r.b.Sessions()
	if err != nil {
		return res, err
	}

	b := binder{dialect: r.m.dialect}
	where := ""
	if plan.Searching() {
		preds := make([]string, len(plan.SearchBy))
		for i, f := range plan.SearchBy {
			arg, err := b.bind(plan.Search)
			if err != nil {
				return res, err
			}
			preds[i] = r.m.dialect.Contains(r.m.fields[f].sql, arg)
		}
		where = "WHERE " + strings.Join(preds, " OR ")
	}
	countSQL := "SELECT COUNT(*) FROM " + r.m.from
	if where != "" {
		countSQL += " " + where
	}
	countArgs := slices.Clone(b.args)

	order := make([]string, len(plan.Keys))
	for i, k := range plan.Keys {
		order[i] = r.m.orderExpr(k.Field, k.Desc)
	}
	limit, err := b.bind(int64(plan.Page.Limit))
	if err != nil {
		return res, err
	}
	offset, err := b.bind(int64(plan.Page.Offset))
	if err != nil {
		return res, err
	}
	tail := strings.TrimSpace(fmt.Sprintf("%s ORDER BY %s LIMIT %s OFFSET %s", where, strings.Join(order, ", "), limit, offset))

	// The count and the page read one snapshot.
	var count int64
	var objects []R
	err = s.WithTxOptions(ctx, r.m.dialect.ReadTx(), func(ctx context.Context) error {
		exec := s.Executor(ctx)
		if err := exec.QueryRowContext(ctx, countSQL, countArgs...).Scan(&count); err != nil {
			return fmt.Errorf("counting models: %w", err)
		}
		var err error
		objects, err = r.scan(ctx, exec, r.m.selectSQL(tail), b.args...)
		return err
	})
	if err != nil {
		return res, err
	}
	if objects == nil {
		objects = []R{}
	}
	res.Count = int(count)
	res.Objects = objects
	return res, nil
}

// insert writes the root and subtype rows of recs with one statement per
// table and chunk.
func (r *Repository[R, C, U]) insert(ctx context.Context, exec DBTX, recs []record) error {
	root := r.reg.Root()
	cols := []string{schema.IDColumn, schema.Discriminator}
	for _, f := range root.Own {
		cols = append(cols, f.Column)
	}
	rows := make([][]any, len(recs))
	for i, rec := range recs {
		row := []any{rec.id, rec.entry.Tag}
		for _, f := range root.Own {
			row = append(row, rec.row[f.Column])
		}
		rows[i] = row
	}
	if err := r.insertRows(ctx, exec, root.Table, cols, rows); err != nil {
		return err
	}

	for _, e := range r.reg.Subtypes() {
		cols := []string{schema.IDColumn}
		for _, f := range e.Own {
			cols = append(cols, f.Column)
		}
		var rows [][]any
		for _, rec := range recs {
			if rec.entry != e {
				continue
			}
			row := []any{rec.id}
			for _, f := range e.Own {
				row = append(row, rec.row[f.Column])
			}
			rows = append(rows, row)
		}
		if err := r.insertRows(ctx, exec, e.Table, cols, rows); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository[R, C, U]) insertRows(ctx context.Context, exec DBTX, table string, cols []string, rows [][]any) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = Quote(c)
	}
	for chunk := range chunks(rows, max(1, maxParams/len(cols))) {
		b := binder{dialect: r.m.dialect}
		tuples := make([]string, len(chunk))
		for i, row := range chunk {
			marks, err := b.list(row)
			if err != nil {
				return err
			}
			tuples[i] = "(" + marks + ")"
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", Quote(table), strings.Join(quoted, ", "), strings.Join(tuples, ", "))
		if _, err := exec.ExecContext(ctx, q, b.args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

// assign writes values to the rows of the aggregate id of kind e. Only the
// columns present in values change.
func (r *Repository[R, C, U]) assign(ctx context.Context, exec DBTX, e *schema.Entry, id uuid.UUID, values map[string]any) error {
	if err := r.updateRow(ctx, exec, r.reg.Root(), id, values); err != nil {
		return err
	}
	if e.IsRoot() {
		return nil
	}
	return r.updateRow(ctx, exec, e, id, values)
}

func (r *Repository[R, C, U]) updateRow(ctx context.Context, exec DBTX, table *schema.Entry, id uuid.UUID, values map[string]any) error {
	b := binder{dialect: r.m.dialect}
	var sets []string
	for _, f := range table.Own {
		v, ok := values[f.Column]
		if !ok {
			continue
		}
		mark, err := b.bind(v)
		if err != nil {
			return err
		}
		sets = append(sets, Quote(f.Column)+" = "+mark)
	}
	if len(sets) == 0 {
		return nil
	}
	mark, err := b.bind(id)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", Quote(table.Table), strings.Join(sets, ", "), Quote(schema.IDColumn), mark)
	if _, err := exec.ExecContext(ctx, q, b.args...); err != nil {
		return fmt.Errorf("updating %s: %w", table.Table, err)
	}
	return nil
}

// integrity turns constraint violations into *types.IntegrityError.
func (r *Repository[R, C, U]) integrity(id uuid.UUID, err error) error {
	if r.m.dialect.IsIntegrity(err) {
		return types.NewIntegrityError(id, err)
	}
	return err
}

// Create inserts a new aggregate.
func (r *Repository[R, C, U]) Create(ctx context.Context, c C) (R, error) {
	var out R
	rec, err := r.record(c)
	if err != nil {
		return out, err
	}
	s, err := r.b.Sessions()
	if err != nil {
		return out, err
	}
	err = s.WithTx(ctx, func(ctx context.Context) error {
		exec := s.Executor(ctx)
		if err := r.insert(ctx, exec, []record{rec}); err != nil {
			return r.integrity(rec.id, err)
		}
		m, err := r.get(ctx, exec, rec.id)
		out = m
		return err
	})
	if err != nil {
		var zero R
		return zero, err
	}
	r.log.Debug("created model", zap.String("op", "create"), zap.String("kind", rec.entry.Tag), zap.Stringer("id", rec.id))
	return out, nil
}

// BulkCreate inserts every payload or none of them.
func (r *Repository[R, C, U]) BulkCreate(ctx context.Context, cs []C) ([]R, error) {
	if len(cs) == 0 {
		return []R{}, nil
	}
	recs := make([]record, len(cs))
	ids := make([]uuid.UUID, len(cs))
	for i, c := range cs {
		rec, err := r.record(c)
		if err != nil {
			return nil, err
		}
		recs[i] = rec
		ids[i] = rec.id
	}
	s, err := r.b.Sessions()
	if err != nil {
		return nil, err
	}

	var out []R
	err = s.WithTx(ctx, func(ctx context.Context) error {
		exec := s.Executor(ctx)
		if err := r.insert(ctx, exec, recs); err != nil {
			return r.integrity(uuid.Nil, err)
		}
		created, err := r.fetch(ctx, exec, ids)
		if err != nil {
			return err
		}
		out, err = inOrder(ids, created)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("created models", zap.String("op", "bulk_create"), zap.Int("count", len(out)))
	return out, nil
}

// Update applies the fields set in u.
func (r *Repository[R, C, U]) Update(ctx context.Context, u U) (R, error) {
	out, err := r.BulkUpdate(ctx, []U{u})
	if err != nil {
		var zero R
		return zero, err
	}
	return out[0], nil
}

// BulkUpdate applies every update or none of them. Each result holds the
// state of its aggregate once the whole batch is applied.
func (r *Repository[R, C, U]) BulkUpdate(ctx context.Context, us []U) ([]R, error) {
	if len(us) == 0 {
		return []R{}, nil
	}
	payloads := make([]*schema.Entry, len(us))
	ids := make([]uuid.UUID, len(us))
	for i, u := range us {
		e, err := r.reg.ResolveUpdate(u)
		if err != nil {
			return nil, err
		}
		payloads[i] = e
		ids[i] = u.ModelID()
	}
	s, err := r.b.Sessions()
	if err != nil {
		return nil, err
	}

	var out []R
	err = s.WithTx(ctx, func(ctx context.Context) error {
		exec := s.Executor(ctx)
		unique := distinct(ids)
		stored, err := r.fetch(ctx, exec, unique)
		if err != nil {
			return err
		}
		if len(stored) < len(unique) {
			return types.NewNotFoundError(missing(unique, stored)...)
		}
		kinds := make(map[uuid.UUID]*schema.Entry, len(stored))
		for _, m := range stored {
			if kinds[m.ModelID()], err = r.reg.Lookup(m.ModelKind()); err != nil {
				return err
			}
		}

		for i, u := range us {
			e := kinds[ids[i]]
			if err := schema.CheckUpdate(e, payloads[i]); err != nil {
				return err
			}
			values := payloads[i].UpdateLayout.Values(u)
			delete(values, schema.IDColumn)
			if err := r.assign(ctx, exec, e, ids[i], values); err != nil {
				return err
			}
		}

		updated, err := r.fetch(ctx, exec, unique)
		if err != nil {
			return err
		}
		out, err = inOrder(ids, updated)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("updated models", zap.String("op", "update"), zap.Int("count", len(out)))
	return out, nil
}

// Upsert creates the aggregate or overwrites its stored fields with c's.
func (r *Repository[R, C, U]) Upsert(ctx context.Context, c C) (R, error) {
	var out R
	rec, err := r.record(c)
	if err != nil {
		return out, err
	}
	s, err := r.b.Sessions()
	if err != nil {
		return out, err
	}
	err = s.WithTx(ctx, func(ctx context.Context) error {
		exec := s.Executor(ctx)
		stored, ok, err := r.getOrNone(ctx, exec, rec.id)
		if err != nil {
			return err
		}
		switch {
		case !ok:
			if err := r.insert(ctx, exec, []record{rec}); err != nil {
				return r.integrity(rec.id, err)
			}
		case stored.ModelKind() != rec.entry.Tag:
			return fmt.Errorf("%w: upsert of %q onto stored %q", schema.ErrKindMismatch, rec.entry.Tag, stored.ModelKind())
		default:
			values := maps.Clone(rec.given)
			delete(values, schema.IDColumn)
			if err := r.assign(ctx, exec, rec.entry, rec.id, values); err != nil {
				return err
			}
		}
		out, err = r.get(ctx, exec, rec.id)
		return err
	})
	if err != nil {
		var zero R
		return zero, err
	}
	r.log.Debug("upserted model", zap.String("op", "upsert"), zap.String("kind", rec.entry.Tag), zap.Stringer("id", rec.id))
	return out, nil
}

// Delete removes the aggregates with the given ids, subtype rows first.
func (r *Repository[R, C, U]) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	s, err := r.b.Sessions()
	if err != nil {
		return err
	}
	ids = distinct(ids)
	tables := make([]string, 0, len(r.reg.Entries()))
	for _, e := range r.reg.Subtypes() {
		tables = append(tables, e.Table)
	}
	tables = append(tables, r.reg.Root().Table)

	err = s.WithTx(ctx, func(ctx context.Context) error {
		exec := s.Executor(ctx)
		for chunk := range chunks(ids, maxParams) {
			for _, table := range tables {
				b := binder{dialect: r.m.dialect}
				marks, err := b.list(anySlice(chunk))
				if err != nil {
					return err
				}
				q := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", Quote(table), Quote(schema.IDColumn), marks)
				if _, err := exec.ExecContext(ctx, q, b.args...); err != nil {
					return fmt.Errorf("deleting from %s: %w", table, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("deleted models", zap.String("op", "delete"), zap.Int("count", len(ids)))
	return nil
}

// Compile-time interface check.
var _ types.Repository[schema.ReadSchema, schema.CreateSchema, schema.UpdateSchema] = (*Repository[schema.ReadSchema, schema.CreateSchema, schema.UpdateSchema])(nil)
