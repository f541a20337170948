package schema

import (
	"errors"

	"github.com/google/uuid"
)

// Model is implemented by every schema value the engine handles.
type Model interface {
	// ModelID returns the aggregate identifier.
	ModelID() uuid.UUID
	// ModelKind returns the discriminator tag of the schema's kind.
	ModelKind() string
}

// ReadSchema is the authoritative persisted shape of one aggregate.
// Implementations are comparable struct values; equality is structural.
type ReadSchema interface {
	Model
}

// CreateSchema is the payload used to construct a new aggregate.
type CreateSchema interface {
	Model
}

// UpdateSchema is a partial payload. Pointer fields are optional and a nil
// pointer leaves the stored column unchanged; other fields are always applied.
type UpdateSchema interface {
	Model
}

// Reserved column names.
const (
	IDColumn      = "id"
	Discriminator = "type"
)

// Schema errors. Declaration errors are programming errors and are reported
// once, when the registry is built.
var (
	ErrInvalidSchema = errors.New("invalid schema")
	ErrUnknownKind   = errors.New("unknown kind")
	ErrKindMismatch  = errors.New("kind mismatch")
	ErrConversion    = errors.New("value conversion failed")
)
