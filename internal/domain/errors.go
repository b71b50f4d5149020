package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates the request was rejected before any
	// persistence call was made.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a referenced row no longer exists.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an optimistic-concurrency rejection.
	ErrConflict = errors.New("concurrent modification")

	// ErrPersistence indicates a storage or transport failure.
	ErrPersistence = errors.New("persistence failure")

	// ErrBusy indicates a destructive mutation is already in flight for
	// the same tree version.
	ErrBusy = errors.New("tree version busy")
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for building a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
