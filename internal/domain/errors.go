package domain

import (
	"fmt"
)

// Error codes for different failure scenarios.
const (
	ErrInvalidInput  = "INVALID_INPUT"
	ErrDatabaseError = "DATABASE_ERROR"
	ErrNotFoundCode  = "NOT_FOUND"
	ErrInternalError = "INTERNAL_ERROR"
)

// ValidationError rejects an out-of-domain input field. The engine fails
// fast on physiologically impossible values instead of letting them clamp
// through the piecewise scoring bands and silently distort the risk profile.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Kind returns the error code carried by validation failures.
func (e *ValidationError) Kind() string { return ErrInvalidInput }

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
