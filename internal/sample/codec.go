package sample

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/repokit/pkg/schema"
)

// TypeKey is the JSON member carrying the discriminator.
const TypeKey = "type"

type envelope struct {
	Type string `json:"type"`
}

func kindOf(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decoding payload: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: payload has no %q member", schema.ErrUnknownKind, TypeKey)
	}
	return env.Type, nil
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decoding payload: %w", err)
	}
	return v, nil
}

// DecodeCreate parses a JSON create payload, picking the schema from its
// type member.
func DecodeCreate(data []byte) (Create, error) {
	kind, err := kindOf(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindParent:
		return decode[ParentCreate](data)
	case KindChildA:
		return decode[ChildACreate](data)
	case KindChildB:
		return decode[ChildBCreate](data)
	}
	return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
}

// DecodeUpdate parses a JSON update payload, picking the schema from its
// type member.
func DecodeUpdate(data []byte) (Update, error) {
	kind, err := kindOf(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindParent:
		return decode[ParentUpdate](data)
	case KindChildA:
		return decode[ChildAUpdate](data)
	case KindChildB:
		return decode[ChildBUpdate](data)
	}
	return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
}

// Encode renders m as a JSON object whose first member is its type.
func Encode(m Model) (json.RawMessage, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", m.ModelKind(), err)
	}
	tag, err := json.Marshal(m.ModelKind())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"` + TypeKey + `":`)
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// WithID returns c with its id replaced.
func WithID(c Create, id uuid.UUID) Create {
	switch c := c.(type) {
	case ParentCreate:
		c.ID = id
		return c
	case ChildACreate:
		c.ID = id
		return c
	case ChildBCreate:
		c.ID = id
		return c
	}
	return c
}
