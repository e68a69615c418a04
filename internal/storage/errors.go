package storage

import (
	"errors"
	"fmt"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

var (
	// ErrNotFound is returned when a requested entity or link does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrUnknownEngine is returned by Open for an unrecognized storage type.
	ErrUnknownEngine = errors.New("storage: unknown engine type")
)

// ValidationError reports a required field missing from an entity. It is the
// model package's error, re-exported so callers depend on storage alone.
type ValidationError = model.ValidationError

// PersistenceError wraps an I/O or commit failure. The storage layer never
// retries; the caller may retry the whole operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IntegrityError reports a constraint violation in the relational engine.
// The active session has been rolled back by the time it is returned.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("storage: %s: constraint violation: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }
