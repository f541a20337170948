package schema

import (
	"fmt"
	"reflect"
)

// Kind declares one member of a polymorphic hierarchy: its discriminator tag,
// its storage table and its schema triple.
type Kind struct {
	Tag    string
	Table  string
	Read   reflect.Type
	Create reflect.Type
	Update reflect.Type
}

// KindOf declares a kind from its schema types.
func KindOf[R ReadSchema, C CreateSchema, U UpdateSchema](tag, table string) Kind {
	return Kind{
		Tag:    tag,
		Table:  table,
		Read:   reflect.TypeFor[R](),
		Create: reflect.TypeFor[C](),
		Update: reflect.TypeFor[U](),
	}
}

// Entry is a validated registry member.
type Entry struct {
	Kind
	ReadLayout   *Layout
	CreateLayout *Layout
	UpdateLayout *Layout

	// Own lists the read columns stored in this kind's table, excluding id.
	// For the root these are the common columns; for a subtype, the columns
	// the root does not declare.
	Own []Field

	root bool
}

// IsRoot reports whether the entry is the hierarchy root.
func (e *Entry) IsRoot() bool { return e.root }

// NewRead builds the read schema value of this kind from column values.
func (e *Entry) NewRead(values map[string]any) (any, error) {
	rv, err := e.ReadLayout.Build(values)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", e.Tag, err)
	}
	return rv.Interface(), nil
}

// Registry maps discriminator tags to kinds. It is immutable once built.
type Registry struct {
	root    *Entry
	entries []*Entry
	byTag   map[string]*Entry
	columns map[string][]*Entry
}

// NewRegistry validates a hierarchy made of root and its subtypes.
func NewRegistry(root Kind, subtypes ...Kind) (*Registry, error) {
	r := &Registry{
		byTag:   make(map[string]*Entry),
		columns: make(map[string][]*Entry),
	}
	tables := make(map[string]bool)

	for i, k := range append([]Kind{root}, subtypes...) {
		if k.Tag == "" || k.Table == "" {
			return nil, fmt.Errorf("%w: kind %d needs a tag and a table", ErrInvalidSchema, i)
		}
		if _, dup := r.byTag[k.Tag]; dup {
			return nil, fmt.Errorf("%w: tag %q registered twice", ErrInvalidSchema, k.Tag)
		}
		if tables[k.Table] {
			return nil, fmt.Errorf("%w: table %q registered twice", ErrInvalidSchema, k.Table)
		}
		tables[k.Table] = true

		e, err := newEntry(k, i == 0)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			r.root = e
		} else if err := r.attach(e); err != nil {
			return nil, err
		}
		r.entries = append(r.entries, e)
		r.byTag[k.Tag] = e
	}

	for _, f := range r.root.ReadLayout.Fields {
		r.columns[f.Column] = []*Entry{r.root}
	}
	for _, e := range r.entries[1:] {
		for _, f := range e.Own {
			r.columns[f.Column] = append(r.columns[f.Column], e)
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for static declarations; it panics on error.
func MustRegistry(root Kind, subtypes ...Kind) *Registry {
	r, err := NewRegistry(root, subtypes...)
	if err != nil {
		panic(err)
	}
	return r
}

func newEntry(k Kind, root bool) (*Entry, error) {
	e := &Entry{Kind: k, root: root}
	if k.Read == nil || k.Read.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: read schema of %q must be a struct type", ErrInvalidSchema, k.Tag)
	}
	var err error
	if e.ReadLayout, err = LayoutOf(k.Read); err != nil {
		return nil, err
	}
	if e.CreateLayout, err = LayoutOf(k.Create); err != nil {
		return nil, err
	}
	if e.UpdateLayout, err = LayoutOf(k.Update); err != nil {
		return nil, err
	}

	for _, l := range []*Layout{e.ReadLayout, e.CreateLayout, e.UpdateLayout} {
		id, ok := l.Field(IDColumn)
		if !ok || id.Type != uuidType || id.Optional {
			return nil, fmt.Errorf("%w: %s needs a non-pointer uuid %q column", ErrInvalidSchema, l.Type, IDColumn)
		}
	}
	for _, f := range e.ReadLayout.Fields {
		if f.Optional {
			return nil, fmt.Errorf("%w: read schema %s column %q must not be a pointer", ErrInvalidSchema, k.Read, f.Column)
		}
	}
	for _, l := range []*Layout{e.CreateLayout, e.UpdateLayout} {
		for _, f := range l.Fields {
			rf, ok := e.ReadLayout.Field(f.Column)
			if !ok {
				return nil, fmt.Errorf("%w: %s column %q is not in read schema %s", ErrInvalidSchema, l.Type, f.Column, k.Read)
			}
			if rf.Type != f.Type {
				return nil, fmt.Errorf("%w: %s column %q is %s, read schema has %s", ErrInvalidSchema, l.Type, f.Column, f.Type, rf.Type)
			}
		}
	}
	if root {
		for _, f := range e.ReadLayout.Fields {
			if f.Column != IDColumn {
				e.Own = append(e.Own, f)
			}
		}
	}
	return e, nil
}

// attach checks that subtype e extends the root and derives its own columns.
func (r *Registry) attach(e *Entry) error {
	for _, f := range r.root.ReadLayout.Fields {
		sf, ok := e.ReadLayout.Field(f.Column)
		if !ok || sf.Type != f.Type {
			return fmt.Errorf("%w: %s does not extend root column %q", ErrInvalidSchema, e.Read, f.Column)
		}
	}
	for _, f := range e.ReadLayout.Fields {
		if r.root.ReadLayout.Has(f.Column) {
			continue
		}
		for _, other := range r.entries[1:] {
			if of, ok := other.ReadLayout.Field(f.Column); ok && of.Type != f.Type {
				return fmt.Errorf("%w: column %q is %s in %s and %s in %s",
					ErrInvalidSchema, f.Column, f.Type, e.Tag, of.Type, other.Tag)
			}
		}
		e.Own = append(e.Own, f)
	}
	return nil
}

// Root returns the hierarchy root.
func (r *Registry) Root() *Entry { return r.root }

// Entries returns every kind, root first.
func (r *Registry) Entries() []*Entry { return r.entries }

// Subtypes returns every kind except the root.
func (r *Registry) Subtypes() []*Entry { return r.entries[1:] }

// Lookup resolves a discriminator tag.
func (r *Registry) Lookup(tag string) (*Entry, error) {
	e, ok := r.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, tag)
	}
	return e, nil
}

// Owners returns the kinds whose tables store column. The root owns the id,
// the discriminator and the common columns.
func (r *Registry) Owners(column string) []*Entry {
	if column == IDColumn || column == Discriminator {
		return []*Entry{r.root}
	}
	return r.columns[column]
}

// ResolveCreate returns the kind of a create payload after checking that the
// payload's type is the one registered for its tag.
func (r *Registry) ResolveCreate(c CreateSchema) (*Entry, error) {
	e, err := r.Lookup(c.ModelKind())
	if err != nil {
		return nil, err
	}
	if t := indirect(reflect.TypeOf(c)); t != indirect(e.Create) {
		return nil, fmt.Errorf("%w: %s is not the create schema of %q", ErrKindMismatch, t, e.Tag)
	}
	return e, nil
}

// ResolveUpdate returns the kind of an update payload after checking that the
// payload's type is the one registered for its tag.
func (r *Registry) ResolveUpdate(u UpdateSchema) (*Entry, error) {
	e, err := r.Lookup(u.ModelKind())
	if err != nil {
		return nil, err
	}
	if t := indirect(reflect.TypeOf(u)); t != indirect(e.Update) {
		return nil, fmt.Errorf("%w: %s is not the update schema of %q", ErrKindMismatch, t, e.Tag)
	}
	return e, nil
}

// CheckUpdate reports whether an update of kind payload may be applied to a
// stored aggregate of kind stored: the kinds must match, or the payload must
// be a root update touching only common columns.
func CheckUpdate(stored, payload *Entry) error {
	if stored == payload || payload.root {
		return nil
	}
	return fmt.Errorf("%w: %q update applied to %q", ErrKindMismatch, payload.Tag, stored.Tag)
}

// Implements verifies that every registered read schema can be returned as
// a value of type t.
func (r *Registry) Implements(t reflect.Type) error {
	for _, e := range r.entries {
		switch {
		case t.Kind() == reflect.Interface && e.Read.Implements(t):
		case e.Read == t:
		default:
			return fmt.Errorf("%w: read schema %s of %q is not assignable to %s", ErrInvalidSchema, e.Read, e.Tag, t)
		}
	}
	return nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
