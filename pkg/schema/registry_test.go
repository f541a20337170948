package schema

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	root, dogKind, catKind := animalKinds()
	r, err := NewRegistry(root, dogKind, catKind)
	require.NoError(t, err)

	assert.Equal(t, "animal", r.Root().Tag)
	assert.True(t, r.Root().IsRoot())
	require.Len(t, r.Entries(), 3)
	require.Len(t, r.Subtypes(), 2)
	assert.False(t, r.Subtypes()[0].IsRoot())

	own := func(e *Entry) []string {
		var cols []string
		for _, f := range e.Own {
			cols = append(cols, f.Column)
		}
		return cols
	}
	assert.Equal(t, []string{"name", "legs"}, own(r.Root()))
	d, err := r.Lookup("dog")
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, own(d))
	c, err := r.Lookup("cat")
	require.NoError(t, err)
	assert.Equal(t, []string{"lives", "mass"}, own(c))

	_, err = r.Lookup("bird")
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Equal(t, []*Entry{r.Root()}, r.Owners(IDColumn))
	assert.Equal(t, []*Entry{r.Root()}, r.Owners(Discriminator))
	assert.Equal(t, []*Entry{r.Root()}, r.Owners("name"))
	assert.Equal(t, []*Entry{c}, r.Owners("mass"))
	assert.Empty(t, r.Owners("wings"))

	require.NoError(t, r.Implements(reflect.TypeFor[animalModel]()))
	assert.ErrorIs(t, r.Implements(reflect.TypeFor[animal]()), ErrInvalidSchema)
}

func TestRegistryWithoutSubtypes(t *testing.T) {
	root, _, _ := animalKinds()
	r, err := NewRegistry(root)
	require.NoError(t, err)
	assert.Empty(t, r.Subtypes())
	require.NoError(t, r.Implements(reflect.TypeFor[animal]()))
}

type lonelyID struct {
	Key string `db:"key"`
}

func (l lonelyID) ModelID() uuid.UUID { return uuid.Nil }
func (l lonelyID) ModelKind() string  { return "lonely" }

type stringID struct {
	ID string `db:"id"`
}

func (s stringID) ModelID() uuid.UUID { return uuid.Nil }
func (s stringID) ModelKind() string  { return "stringy" }

type optionalRead struct {
	ID   uuid.UUID `db:"id"`
	Name *string   `db:"name"`
}

func (o optionalRead) ModelID() uuid.UUID { return o.ID }
func (o optionalRead) ModelKind() string  { return "optional" }

type strayCreate struct {
	ID    uuid.UUID `db:"id"`
	Wings int       `db:"wings"`
}

func (s strayCreate) ModelID() uuid.UUID { return s.ID }
func (s strayCreate) ModelKind() string  { return "animal" }

type retypedCreate struct {
	ID   uuid.UUID `db:"id"`
	Legs string    `db:"legs"`
}

func (r retypedCreate) ModelID() uuid.UUID { return r.ID }
func (r retypedCreate) ModelKind() string  { return "animal" }

// fish does not embed animal.
type fish struct {
	ID   uuid.UUID `db:"id"`
	Fins int       `db:"fins"`
}

func (f fish) ModelID() uuid.UUID { return f.ID }
func (f fish) ModelKind() string  { return "fish" }

// bird redeclares mass with another type than cat.
type bird struct {
	animal
	Mass int `db:"mass"`
}

func (b bird) ModelKind() string { return "bird" }

func TestNewRegistryRejects(t *testing.T) {
	root, dogKind, catKind := animalKinds()

	tests := []struct {
		name     string
		root     Kind
		subtypes []Kind
	}{
		{"empty tag", Kind{Table: "t", Read: root.Read, Create: root.Create, Update: root.Update}, nil},
		{"empty table", Kind{Tag: "animal", Read: root.Read, Create: root.Create, Update: root.Update}, nil},
		{"duplicate tag", root, []Kind{KindOf[dog, dogCreate, dogUpdate]("animal", "dogs")}},
		{"duplicate table", root, []Kind{KindOf[dog, dogCreate, dogUpdate]("dog", "animals")}},
		{"pointer read schema", KindOf[*animal, animalCreate, animalUpdate]("animal", "animals"), nil},
		{"missing id", KindOf[lonelyID, animalCreate, animalUpdate]("animal", "animals"), nil},
		{"non-uuid id", KindOf[stringID, animalCreate, animalUpdate]("animal", "animals"), nil},
		{"optional read field", KindOf[optionalRead, animalCreate, animalUpdate]("animal", "animals"), nil},
		{"create column not readable", KindOf[animal, strayCreate, animalUpdate]("animal", "animals"), nil},
		{"create column retyped", KindOf[animal, retypedCreate, animalUpdate]("animal", "animals"), nil},
		{"subtype not extending root", root, []Kind{KindOf[fish, animalCreate, animalUpdate]("fish", "fish")}},
		{"shared column with two types", root, []Kind{dogKind, catKind, KindOf[bird, animalCreate, animalUpdate]("bird", "birds")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.root, tt.subtypes...)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}

	assert.Panics(t, func() { MustRegistry(root, dogKind, dogKind) })
}

func TestRegistryResolve(t *testing.T) {
	root, dogKind, catKind := animalKinds()
	r := MustRegistry(root, dogKind, catKind)

	e, err := r.ResolveCreate(dogCreate{})
	require.NoError(t, err)
	assert.Equal(t, "dog", e.Tag)

	e, err = r.ResolveCreate(&catCreate{})
	require.NoError(t, err)
	assert.Equal(t, "cat", e.Tag)

	_, err = r.ResolveCreate(strayCreate{})
	assert.ErrorIs(t, err, ErrKindMismatch)

	e, err = r.ResolveUpdate(animalUpdate{})
	require.NoError(t, err)
	assert.True(t, e.IsRoot())

	_, err = r.ResolveUpdate(dogCreate{})
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestCheckUpdate(t *testing.T) {
	root, dogKind, catKind := animalKinds()
	r := MustRegistry(root, dogKind, catKind)
	d, _ := r.Lookup("dog")
	c, _ := r.Lookup("cat")

	assert.NoError(t, CheckUpdate(d, d))
	assert.NoError(t, CheckUpdate(d, r.Root()))
	assert.NoError(t, CheckUpdate(r.Root(), r.Root()))
	assert.ErrorIs(t, CheckUpdate(d, c), ErrKindMismatch)
	assert.ErrorIs(t, CheckUpdate(r.Root(), d), ErrKindMismatch)
}

func TestEntryNewRead(t *testing.T) {
	root, dogKind, _ := animalKinds()
	r := MustRegistry(root, dogKind)
	d, _ := r.Lookup("dog")
	id := uuid.New()

	v, err := d.NewRead(map[string]any{"id": id.String(), "name": "rex", "legs": int64(4), "good": true})
	require.NoError(t, err)
	assert.Equal(t, dog{animal: animal{ID: id, Name: "rex", Legs: 4}, Good: true}, v)

	_, err = d.NewRead(map[string]any{"good": "maybe"})
	assert.ErrorIs(t, err, ErrConversion)
}
