package core

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failure")
	ErrFormat            = errors.New("malformed backup document")
	ErrProtectedCategory = errors.New("default categories cannot be deleted")
)

// ValidationError reports a rejected input with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Persistence wraps a storage failure so that it matches ErrPersistence while keeping the
// driver error reachable.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
