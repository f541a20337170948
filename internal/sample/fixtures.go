package sample

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/repokit/pkg/schema"
)

// Fixtures is a seed data set covering every kind, with duplicated sort
// values among the parents.
type Fixtures struct {
	Parents  []Parent
	ChildA   []ChildA
	ChildB   []ChildB
	ToCreate []Model
	ToUpdate []Change
}

// Change pairs a stored model with its expected state after an update.
type Change struct {
	Before Model
	After  Model
}

// NewFixtures generates a fresh data set with random ids.
func NewFixtures() Fixtures {
	var f Fixtures
	for i := range 10 {
		f.Parents = append(f.Parents, Parent{ID: uuid.New(), Str: fmt.Sprintf("parent model%d", i), Int: int64(i)})
	}
	f.Parents = append(f.Parents, Parent{ID: uuid.New(), Str: "parent model10", Int: 9})
	for i := range 10 {
		f.ChildA = append(f.ChildA, ChildA{
			Parent: Parent{ID: uuid.New(), Str: fmt.Sprintf("child a model%d", i), Int: int64(i)},
			Float:  float64(i) / 2,
		})
		f.ChildB = append(f.ChildB, ChildB{
			Parent: Parent{ID: uuid.New(), Str: fmt.Sprintf("child b model %d", i), Int: int64(i)},
			Bool:   i%2 == 0,
		})
	}

	for i := range 3 {
		f.ToCreate = append(f.ToCreate, Parent{ID: uuid.New(), Str: fmt.Sprintf("new parent model%d", i), Int: int64(i)})
	}
	for i := 3; i < 6; i++ {
		f.ToCreate = append(f.ToCreate, ChildA{
			Parent: Parent{ID: uuid.New(), Str: fmt.Sprintf("new child a model%d", i), Int: int64(i)},
			Float:  float64(i) / 2,
		})
	}
	for i := 6; i < 9; i++ {
		f.ToCreate = append(f.ToCreate, ChildB{
			Parent: Parent{ID: uuid.New(), Str: fmt.Sprintf("new child b model%d", i), Int: int64(i)},
			Bool:   i%2 == 0,
		})
	}

	for i, p := range f.Parents[:5] {
		after := p
		after.Str = fmt.Sprintf("updated parent model%d", i)
		f.ToUpdate = append(f.ToUpdate, Change{Before: p, After: after})
	}
	for i, c := range f.ChildA[:5] {
		after := c
		after.Int = int64(i * 1000)
		after.Float = float64(i) + 1000.5
		f.ToUpdate = append(f.ToUpdate, Change{Before: c, After: after})
	}
	for i, c := range f.ChildB[:5] {
		after := c
		after.Str = fmt.Sprintf("updated child b model%d", i)
		after.Bool = !c.Bool
		f.ToUpdate = append(f.ToUpdate, Change{Before: c, After: after})
	}
	return f
}

// Models returns every seeded model: parents, then child_a, then child_b.
func (f Fixtures) Models() []Model {
	out := make([]Model, 0, len(f.Parents)+len(f.ChildA)+len(f.ChildB))
	for _, p := range f.Parents {
		out = append(out, p)
	}
	for _, c := range f.ChildA {
		out = append(out, c)
	}
	for _, c := range f.ChildB {
		out = append(out, c)
	}
	return out
}

// IDs returns the ids of models in order.
func IDs(models []Model) []uuid.UUID {
	ids := make([]uuid.UUID, len(models))
	for i, m := range models {
		ids[i] = m.ModelID()
	}
	return ids
}

// CreateOf returns the create payload that produces m.
func CreateOf(m Model) Create {
	switch m := m.(type) {
	case ChildA:
		return schema.MustConvert[ChildACreate](m)
	case ChildB:
		return schema.MustConvert[ChildBCreate](m)
	default:
		return schema.MustConvert[ParentCreate](m)
	}
}

// CreatesOf maps CreateOf over models.
func CreatesOf(models []Model) []Create {
	out := make([]Create, len(models))
	for i, m := range models {
		out[i] = CreateOf(m)
	}
	return out
}

// UpdateOf returns the update payload that turns any stored state of m's
// aggregate into m.
func UpdateOf(m Model) Update {
	switch m := m.(type) {
	case ChildA:
		return schema.MustConvert[ChildAUpdate](m)
	case ChildB:
		return schema.MustConvert[ChildBUpdate](m)
	default:
		return schema.MustConvert[ParentUpdate](m)
	}
}
