package schema

import "github.com/google/uuid"

// Test hierarchy: an animal root with dog and cat subtypes.

type animal struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name,size=40"`
	Legs int       `db:"legs"`
}

func (a animal) ModelID() uuid.UUID { return a.ID }
func (a animal) ModelKind() string  { return "animal" }

type dog struct {
	animal
	Good bool `db:"good"`
}

func (d dog) ModelKind() string { return "dog" }

type cat struct {
	animal
	Lives uint8   `db:"lives"`
	Mass  float64 `db:"mass"`
}

func (c cat) ModelKind() string { return "cat" }

type animalCreate struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
	Legs int       `db:"legs"`
}

func (a animalCreate) ModelID() uuid.UUID { return a.ID }
func (a animalCreate) ModelKind() string  { return "animal" }

type dogCreate struct {
	animalCreate
	Good bool `db:"good"`
}

func (d dogCreate) ModelKind() string { return "dog" }

type catCreate struct {
	animalCreate
	Lives uint8   `db:"lives"`
	Mass  float64 `db:"mass"`
}

func (c catCreate) ModelKind() string { return "cat" }

type animalUpdate struct {
	ID   uuid.UUID `db:"id"`
	Name *string   `db:"name"`
	Legs *int      `db:"legs"`
}

func (a animalUpdate) ModelID() uuid.UUID { return a.ID }
func (a animalUpdate) ModelKind() string  { return "animal" }

type dogUpdate struct {
	animalUpdate
	Good *bool `db:"good"`
}

func (d dogUpdate) ModelKind() string { return "dog" }

type catUpdate struct {
	animalUpdate
	Lives *uint8  `db:"lives"`
	Mass  float64 `db:"mass"`
}

func (c catUpdate) ModelKind() string { return "cat" }

func animalKinds() (Kind, Kind, Kind) {
	return KindOf[animal, animalCreate, animalUpdate]("animal", "animals"),
		KindOf[dog, dogCreate, dogUpdate]("dog", "dogs"),
		KindOf[cat, catCreate, catUpdate]("cat", "cats")
}

type animalModel interface {
	ReadSchema
}
