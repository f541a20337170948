// Package memory implements the repository contract over a process-local
// map. It is meant for tests and embedding, not concurrent production use:
// writes are last-writer-wins and the mutex only keeps the map consistent.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/repokit/internal/logger"
	"github.com/mesh-intelligence/repokit/internal/query"
	"github.com/mesh-intelligence/repokit/pkg/schema"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// Repository stores resolved read values keyed by id.
type Repository[R schema.ReadSchema, C schema.CreateSchema, U schema.UpdateSchema] struct {
	reg *schema.Registry
	log *zap.Logger

	mu     sync.RWMutex
	models map[uuid.UUID]R
}

// New creates an empty repository over reg. A nil logger disables logging.
func New[R schema.ReadSchema, C schema.CreateSchema, U schema.UpdateSchema](reg *schema.Registry, log *zap.Logger) (*Repository[R, C, U], error) {
	if err := reg.Implements(reflect.TypeFor[R]()); err != nil {
		return nil, err
	}
	return &Repository[R, C, U]{
		reg:    reg,
		log:    logger.OrNop(log).With(zap.String("backend", "memory"), zap.String("root", reg.Root().Tag)),
		models: make(map[uuid.UUID]R),
	}, nil
}

// Get retrieves the aggregate with the given id.
func (r *Repository[R, C, U]) Get(ctx context.Context, id uuid.UUID) (R, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[id]
	if !ok {
		var zero R
		return zero, types.NewNotFoundError(id)
	}
	return m, nil
}

// GetOrNone retrieves the aggregate with the given id if it exists.
func (r *Repository[R, C, U]) GetOrNone(ctx context.Context, id uuid.UUID) (R, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[id]
	return m, ok, nil
}

// GetByIDs retrieves the aggregates found among ids.
func (r *Repository[R, C, U]) GetByIDs(ctx context.Context, ids []uuid.UUID, exact bool) ([]R, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found   []R
		missing []uuid.UUID
	)
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if m, ok := r.models[id]; ok {
			found = append(found, m)
		} else {
			missing = append(missing, id)
		}
	}
	if exact && len(missing) > 0 {
		return nil, types.NewNotFoundError(missing...)
	}
	if found == nil {
		found = []R{}
	}
	return found, nil
}

// GetAll returns every stored aggregate.
func (r *Repository[R, C, U]) GetAll(ctx context.Context) ([]R, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]R, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	return out, nil
}

// row is a stored model with its column values, discriminator included.
type row[R any] struct {
	model  R
	values map[string]any
}

// Paginate filters, sorts and slices the stored aggregates.
func (r *Repository[R, C, U]) Paginate(ctx context.Context, page types.Pagination, q types.PageQuery) (types.PaginationResult[R], error) {
	plan, err := query.Prepare(r.reg, page, q)
	if err != nil {
		return types.PaginationResult[R]{}, err
	}

	r.mu.RLock()
	rows := make([]row[R], 0, len(r.models))
	for _, m := range r.models {
		values, err := r.values(m)
		if err != nil {
			r.mu.RUnlock()
			return types.PaginationResult[R]{}, err
		}
		if plan.Searching() && !matches(values, plan) {
			continue
		}
		rows = append(rows, row[R]{model: m, values: values})
	}
	r.mu.RUnlock()

	slices.SortFunc(rows, func(a, b row[R]) int {
		for _, k := range plan.Keys {
			c := schema.Compare(a.values[k.Field], b.values[k.Field])
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	start, end := plan.Page.Window(len(rows))
	objects := make([]R, 0, end-start)
	for _, rw := range rows[start:end] {
		objects = append(objects, rw.model)
	}
	return types.PaginationResult[R]{Count: len(rows), Objects: objects}, nil
}

func matches(values map[string]any, plan query.Plan) bool {
	for _, f := range plan.SearchBy {
		v, ok := values[f]
		if ok && v != nil && strings.Contains(schema.Text(v), plan.Search) {
			return true
		}
	}
	return false
}

// values returns the column values of m keyed by column, with the
// discriminator.
func (r *Repository[R, C, U]) values(m R) (map[string]any, error) {
	e, err := r.reg.Lookup(m.ModelKind())
	if err != nil {
		return nil, err
	}
	values := e.ReadLayout.Values(m)
	values[schema.Discriminator] = e.Tag
	return values, nil
}

// build turns a create payload into the read value it produces.
func (r *Repository[R, C, U]) build(c C) (R, *schema.Entry, error) {
	var zero R
	e, err := r.reg.ResolveCreate(c)
	if err != nil {
		return zero, nil, err
	}
	m, err := r.newRead(e, e.CreateLayout.Values(c))
	return m, e, err
}

func (r *Repository[R, C, U]) newRead(e *schema.Entry, values map[string]any) (R, error) {
	var zero R
	v, err := e.NewRead(values)
	if err != nil {
		return zero, err
	}
	m, ok := v.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %T is not %s", schema.ErrInvalidSchema, v, reflect.TypeFor[R]())
	}
	return m, nil
}

// Create inserts a new aggregate.
func (r *Repository[R, C, U]) Create(ctx context.Context, c C) (R, error) {
	m, e, err := r.build(c)
	if err != nil {
		return m, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := m.ModelID()
	if _, exists := r.models[id]; exists {
		var zero R
		return zero, types.NewIntegrityError(id, nil)
	}
	r.models[id] = m
	r.log.Debug("created model", zap.String("op", "create"), zap.String("kind", e.Tag), zap.Stringer("id", id))
	return m, nil
}

// BulkCreate inserts every payload or none of them.
func (r *Repository[R, C, U]) BulkCreate(ctx context.Context, cs []C) ([]R, error) {
	out := make([]R, 0, len(cs))
	for _, c := range cs {
		m, _, err := r.build(c)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make(map[uuid.UUID]bool, len(out))
	for _, m := range out {
		id := m.ModelID()
		if _, exists := r.models[id]; exists || batch[id] {
			return nil, types.NewIntegrityError(id, nil)
		}
		batch[id] = true
	}
	for _, m := range out {
		r.models[m.ModelID()] = m
	}
	r.log.Debug("created models", zap.String("op", "bulk_create"), zap.Int("count", len(out)))
	return out, nil
}

// apply computes the state of stored after u.
func (r *Repository[R, C, U]) apply(stored R, u U) (R, error) {
	var zero R
	payload, err := r.reg.ResolveUpdate(u)
	if err != nil {
		return zero, err
	}
	e, err := r.reg.Lookup(stored.ModelKind())
	if err != nil {
		return zero, err
	}
	if err := schema.CheckUpdate(e, payload); err != nil {
		return zero, err
	}
	values := e.ReadLayout.Values(stored)
	for col, v := range payload.UpdateLayout.Values(u) {
		if col != schema.IDColumn {
			values[col] = v
		}
	}
	return r.newRead(e, values)
}

// Update applies the fields set in u.
func (r *Repository[R, C, U]) Update(ctx context.Context, u U) (R, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero R
	id := u.ModelID()
	stored, ok := r.models[id]
	if !ok {
		return zero, types.NewNotFoundError(id)
	}
	m, err := r.apply(stored, u)
	if err != nil {
		return zero, err
	}
	r.models[id] = m
	r.log.Debug("updated model", zap.String("op", "update"), zap.String("kind", m.ModelKind()), zap.Stringer("id", id))
	return m, nil
}

// BulkUpdate applies every update or none of them. Updates to the same id
// apply in input order and each result holds the state of its aggregate once
// the whole batch is applied.
func (r *Repository[R, C, U]) BulkUpdate(ctx context.Context, us []U) ([]R, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var missing []uuid.UUID
	reported := make(map[uuid.UUID]bool)
	for _, u := range us {
		id := u.ModelID()
		if _, ok := r.models[id]; !ok && !reported[id] {
			reported[id] = true
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, types.NewNotFoundError(missing...)
	}

	pending := make(map[uuid.UUID]R, len(us))
	for _, u := range us {
		id := u.ModelID()
		stored, ok := pending[id]
		if !ok {
			stored = r.models[id]
		}
		m, err := r.apply(stored, u)
		if err != nil {
			return nil, err
		}
		pending[id] = m
	}
	out := make([]R, len(us))
	for i, u := range us {
		out[i] = pending[u.ModelID()]
	}
	for id, m := range pending {
		r.models[id] = m
	}
	r.log.Debug("updated models", zap.String("op", "bulk_update"), zap.Int("count", len(out)))
	return out, nil
}

// Upsert creates the aggregate or overwrites its stored fields with c's.
func (r *Repository[R, C, U]) Upsert(ctx context.Context, c C) (R, error) {
	var zero R
	e, err := r.reg.ResolveCreate(c)
	if err != nil {
		return zero, err
	}
	incoming := e.CreateLayout.Values(c)

	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ModelID()
	values := incoming
	if stored, ok := r.models[id]; ok {
		if stored.ModelKind() != e.Tag {
			return zero, fmt.Errorf("%w: upsert of %q onto stored %q", schema.ErrKindMismatch, e.Tag, stored.ModelKind())
		}
		values = e.ReadLayout.Values(stored)
		for col, v := range incoming {
			values[col] = v
		}
	}
	m, err := r.newRead(e, values)
	if err != nil {
		return zero, err
	}
	r.models[id] = m
	r.log.Debug("upserted model", zap.String("op", "upsert"), zap.String("kind", e.Tag), zap.Stringer("id", id))
	return m, nil
}

// Delete removes the aggregates with the given ids.
func (r *Repository[R, C, U]) Delete(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.models, id)
	}
	r.log.Debug("deleted models", zap.String("op", "delete"), zap.Int("count", len(ids)))
	return nil
}

// Len returns the number of stored aggregates.
func (r *Repository[R, C, U]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Compile-time interface check.
var _ types.Repository[schema.ReadSchema, schema.CreateSchema, schema.UpdateSchema] = (*Repository[schema.ReadSchema, schema.CreateSchema, schema.UpdateSchema])(nil)
