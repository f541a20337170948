// Package sample declares the parent / child_a / child_b hierarchy the
// repository tests and the repokit CLI operate on.
package sample

import (
	"github.com/google/uuid"

	"github.com/mesh-intelligence/repokit/pkg/schema"
)

// Discriminator tags.
const (
	KindParent = "parent"
	KindChildA = "child_a"
	KindChildB = "child_b"
)

// Table names.
const (
	TableParent = "crud_parent_model"
	TableChildA = "crud_child_a_model"
	TableChildB = "crud_child_b_model"
)

// Model is implemented by the read schema of every kind.
type Model interface {
	schema.ReadSchema
	Common() Parent
}

// Create is implemented by the create schema of every kind.
type Create interface {
	schema.CreateSchema
}

// Update is implemented by the update schema of every kind.
type Update interface {
	schema.UpdateSchema
}

// Parent is the root read schema.
type Parent struct {
	ID  uuid.UUID `db:"id" json:"id"`
	Str string    `db:"str_column,size=100" json:"str_column"`
	Int int64     `db:"int_column" json:"int_column"`
}

func (p Parent) ModelID() uuid.UUID { return p.ID }
func (p Parent) ModelKind() string  { return KindParent }
func (p Parent) Common() Parent     { return p }

// ChildA extends Parent with a float column.
type ChildA struct {
	Parent
	Float float64 `db:"float_column" json:"float_column"`
}

func (c ChildA) ModelKind() string { return KindChildA }

// ChildB extends Parent with a bool column.
type ChildB struct {
	Parent
	Bool bool `db:"bool_column" json:"bool_column"`
}

func (c ChildB) ModelKind() string { return KindChildB }

// ParentCreate creates a Parent.
type ParentCreate struct {
	ID  uuid.UUID `db:"id" json:"id"`
	Str string    `db:"str_column" json:"str_column"`
	Int int64     `db:"int_column" json:"int_column"`
}

func (p ParentCreate) ModelID() uuid.UUID { return p.ID }
func (p ParentCreate) ModelKind() string  { return KindParent }

// ChildACreate creates a ChildA.
type ChildACreate struct {
	ParentCreate
	Float float64 `db:"float_column" json:"float_column"`
}

func (c ChildACreate) ModelKind() string { return KindChildA }

// ChildBCreate creates a ChildB.
type ChildBCreate struct {
	ParentCreate
	Bool bool `db:"bool_column" json:"bool_column"`
}

func (c ChildBCreate) ModelKind() string { return KindChildB }

// ParentUpdate changes the common columns of any kind.
type ParentUpdate struct {
	ID  uuid.UUID `db:"id" json:"id"`
	Str *string   `db:"str_column" json:"str_column,omitempty"`
	Int *int64    `db:"int_column" json:"int_column,omitempty"`
}

func (p ParentUpdate) ModelID() uuid.UUID { return p.ID }
func (p ParentUpdate) ModelKind() string  { return KindParent }

// ChildAUpdate updates a ChildA; Float is always written.
type ChildAUpdate struct {
	ParentUpdate
	Float float64 `db:"float_column" json:"float_column"`
}

func (c ChildAUpdate) ModelKind() string { return KindChildA }

// ChildBUpdate updates a ChildB; Bool is always written.
type ChildBUpdate struct {
	ParentUpdate
	Bool bool `db:"bool_column" json:"bool_column"`
}

func (c ChildBUpdate) ModelKind() string { return KindChildB }

// Kinds returns the root kind followed by the subtypes.
func Kinds() (schema.Kind, []schema.Kind) {
	return schema.KindOf[Parent, ParentCreate, ParentUpdate](KindParent, TableParent),
		[]schema.Kind{
			schema.KindOf[ChildA, ChildACreate, ChildAUpdate](KindChildA, TableChildA),
			schema.KindOf[ChildB, ChildBCreate, ChildBUpdate](KindChildB, TableChildB),
		}
}

// Registry is the validated hierarchy.
var Registry = func() *schema.Registry {
	root, subtypes := Kinds()
	return schema.MustRegistry(root, subtypes...)
}()

// Ptr returns a pointer to v, for filling optional update fields.
func Ptr[T any](v T) *T { return &v }
