package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound reports an operation against a record id that does not exist.
var ErrNotFound = errors.New("content record not found")

// DuplicateError reports a uniqueness-constraint violation (external id or
// slug). Conflicting writes are rejected, never merged.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	if e.Constraint == "" {
		return "content record violates a uniqueness constraint"
	}
	return fmt.Sprintf("content record violates uniqueness constraint %s", e.Constraint)
}

// BadFieldError reports an update payload field that cannot be applied.
type BadFieldError struct {
	Field  string
	Reason string
}

func (e *BadFieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// classify maps driver errors onto the store's error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &DuplicateError{Constraint: pqErr.Constraint}
	}
	return err
}
