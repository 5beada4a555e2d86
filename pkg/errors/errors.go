package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound   = fmt.Errorf("record not found")
	ErrConflict   = fmt.Errorf("record conflicts with an existing one")
	ErrBadRequest = fmt.Errorf("bad request")
	ErrValidation = fmt.Errorf("validation failed")
)

// ValidationError carries field-level failures keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a failure for field. The first message for a field wins.
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
	return e
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns nil when nothing was recorded so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError is a unique-constraint violation. Retryable conflicts come from
// concurrent protocol allocation and can be resolved by repeating the whole operation.
type ConflictError struct {
	Resource  string
	Retryable bool
	Err       error
}

func NewConflictError(resource string, retryable bool, err error) *ConflictError {
	return &ConflictError{Resource: resource, Retryable: retryable, Err: err}
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s conflict: %v", e.Resource, e.Err)
	}
	return e.Resource + " conflict"
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// IsRetryable reports whether err is a conflict the caller may retry.
func IsRetryable(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Retryable
}

// AsValidation unwraps a *ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
