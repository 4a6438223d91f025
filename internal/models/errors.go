package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrDegenerateEvaluation = errors.New("degenerate evaluation: no bets placed")
	ErrSchemaMismatch       = errors.New("feature schema mismatch")
	ErrNotFound             = errors.New("record not found")
)

// ValidationError describes why a single raw record could not be parsed.
type ValidationError struct {
	Code    string `json:"code"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates a validation error with the given code and message
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// WithKey returns a copy of the error bound to a record key (race id, horse id)
func (e *ValidationError) WithKey(key string) *ValidationError {
	clone := *e
	clone.Key = key
	return &clone
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Key, e.Message)
}
