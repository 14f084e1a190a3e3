package model

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed identifier, missing required field,
// malformed JSON, or the empty-filter delete guard. It is always fatal for
// the current item and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports that a requested entity does not exist on the
// backend, e.g. a file-info lookup whose basename is absent from the
// parent-directory listing.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NotFoundf builds a NotFoundError with a formatted message.
func NotFoundf(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}
