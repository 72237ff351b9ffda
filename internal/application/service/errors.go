package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when the caller has no provisioned profile
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the caller's role does not allow the operation
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when the target is not in a state that allows the operation
	ErrConflict = errors.New("conflict")
)

// ValidationError describes one rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports ErrValidation as a match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
