package types

import (
	"context"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/repokit/pkg/schema"
)

// Repository provides uniform CRUD operations over one polymorphic
// hierarchy. R, C and U are usually interface types implemented by every
// kind's read, create and update schema. Returned read values are always
// resolved to the stored kind.
type Repository[R schema.ReadSchema, C schema.CreateSchema, U schema.UpdateSchema] interface {
	// Get retrieves the aggregate with the given id.
	// Returns a *NotFoundError if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (R, error)

	// GetOrNone retrieves the aggregate with the given id; ok is false when
	// it does not exist.
	GetOrNone(ctx context.Context, id uuid.UUID) (model R, ok bool, err error)

	// GetByIDs retrieves the aggregates found among ids, in no particular
	// order. When exact is set and any id is missing, it returns a
	// *NotFoundError listing every missing id.
	GetByIDs(ctx context.Context, ids []uuid.UUID, exact bool) ([]R, error)

	// GetAll returns every aggregate of every kind, in no particular order.
	GetAll(ctx context.Context) ([]R, error)

	// Paginate filters by query.Search, orders by query.Sorting with the id
	// as final tie-break, and returns the page slice with the filtered count.
	Paginate(ctx context.Context, page Pagination, query PageQuery) (PaginationResult[R], error)

	// Create inserts a new aggregate. Returns an *IntegrityError when the id
	// is taken; nothing is written in that case.
	Create(ctx context.Context, c C) (R, error)

	// BulkCreate inserts every payload or none of them. Results follow the
	// input order.
	BulkCreate(ctx context.Context, cs []C) ([]R, error)

	// Update applies the fields set in u to the aggregate u identifies.
	// Returns a *NotFoundError if it does not exist.
	Update(ctx context.Context, u U) (R, error)

	// BulkUpdate applies every update or none of them. Results follow the
	// input order.
	BulkUpdate(ctx context.Context, us []U) ([]R, error)

	// Upsert creates the aggregate when its id is free and otherwise
	// overwrites it with the payload's fields.
	Upsert(ctx context.Context, c C) (R, error)

	// Delete removes the aggregates with the given ids, including their
	// subtype rows. Unknown ids are ignored.
	Delete(ctx context.Context, ids []uuid.UUID) error
}
