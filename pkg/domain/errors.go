package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	// ErrNotFound indicates that a referenced center, participant or alias does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness or structural constraint violation.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates malformed input shape.
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError represents a missing registry record.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entity EntityType, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError represents an identifier that is already in use or a record
// that would violate a registry constraint.
type ConflictError struct {
	Entity EntityType
	ID     string
	Reason string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %q conflicts with an existing record", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %q: %s", e.Entity, e.ID, e.Reason)
}

// Is implements errors.Is support
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError creates a new ConflictError
func NewConflictError(entity EntityType, id, reason string) *ConflictError {
	return &ConflictError{Entity: entity, ID: id, Reason: reason}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}
