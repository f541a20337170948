package types

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Repository errors. Not found and integrity violations are the only domain
// errors; everything else is an infrastructure failure and propagates as is.
var (
	ErrNotFound          = errors.New("model not found")
	ErrIntegrity         = errors.New("model integrity violation")
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrUnknownField      = errors.New("unknown field")
)

// NotFoundError reports the ids a lookup or mutation could not find.
type NotFoundError struct {
	IDs []uuid.UUID
}

// NewNotFoundError creates a NotFoundError for ids.
func NewNotFoundError(ids ...uuid.UUID) error {
	return &NotFoundError{IDs: ids}
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 1 {
		return fmt.Sprintf("model %s not found", e.IDs[0])
	}
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = id.String()
	}
	return fmt.Sprintf("models not found: %s", strings.Join(parts, ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Contains reports whether id is among the missing ids.
func (e *NotFoundError) Contains(id uuid.UUID) bool {
	return slices.Contains(e.IDs, id)
}

// IntegrityError reports a uniqueness or constraint violation. Err holds the
// underlying driver error when there is one.
type IntegrityError struct {
	ID  uuid.UUID
	Err error
}

// NewIntegrityError creates an IntegrityError.
func NewIntegrityError(id uuid.UUID, err error) error {
	return &IntegrityError{ID: id, Err: err}
}

func (e *IntegrityError) Error() string {
	switch {
	case e.ID != uuid.Nil && e.Err != nil:
		return fmt.Sprintf("integrity violation on model %s: %v", e.ID, e.Err)
	case e.ID != uuid.Nil:
		return fmt.Sprintf("model %s already exists", e.ID)
	case e.Err != nil:
		return fmt.Sprintf("integrity violation: %v", e.Err)
	}
	return ErrIntegrity.Error()
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if err is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIntegrity checks if err is an integrity violation.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}
