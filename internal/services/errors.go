package services

import (
	"errors"
	"fmt"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrAlreadySubmitted = errors.New("session already submitted")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidExamFile  = errors.New("invalid exam file format")
)

// ValidationError describes a rejected input field. The operation that raised
// it wrote no partial state.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
