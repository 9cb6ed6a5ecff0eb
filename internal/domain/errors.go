package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of all input validation failures.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
