package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a purchase request does not exist
	ErrNotFound = errors.New("purchase request not found")

	// ErrForbidden is returned when the actor's role may not act on the current status
	ErrForbidden = errors.New("forbidden")

	// ErrRequestTerminal is returned when a transition targets a closed request
	ErrRequestTerminal = errors.New("request is already closed")

	// ErrInvalidTransition is returned when the policy is queried on a status with no outgoing transition
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrFieldAlreadySet is returned when a write-once accounting field would be overwritten
	ErrFieldAlreadySet = errors.New("field already set")

	// ErrConcurrentModification is returned when another transition committed first
	ErrConcurrentModification = errors.New("request was modified concurrently")

	// ErrPersistence is returned when the store failed; nothing was written
	ErrPersistence = errors.New("persistence failure")

	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")
)

// ForbiddenError names the role the current status requires
type ForbiddenError struct {
	Status   Status
	Required Role
	Actual   Role
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("only role %s can act on a request at status %s (actor role: %s)", e.Required, e.Status, e.Actual)
}

// Is matches ErrForbidden
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// FieldAlreadySetError names the write-once field that was already recorded
type FieldAlreadySetError struct {
	Field     string
	RequestID int64
}

func (e *FieldAlreadySetError) Error() string {
	return fmt.Sprintf("%s: %s on request %d", ErrFieldAlreadySet, e.Field, e.RequestID)
}

// Is matches ErrFieldAlreadySet
func (e *FieldAlreadySetError) Is(target error) bool {
	return target == ErrFieldAlreadySet
}

// ValidationError describes an invalid input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
