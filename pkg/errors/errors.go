package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL"

	// Collaborator failures. Always recovered locally, never surfaced to callers.
	ErrorTypeCollaboratorUnavailable ErrorType = "COLLABORATOR_UNAVAILABLE"
	ErrorTypeMalformedResponse       ErrorType = "MALFORMED_RESPONSE"

	// Persistence failures.
	ErrorTypePersistenceConflict ErrorType = "PERSISTENCE_CONFLICT"
	ErrorTypePersistenceFailure  ErrorType = "PERSISTENCE_FAILURE"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// NewCollaboratorUnavailable reports a timeout or transport failure talking to an external
// collaborator (classification or narrative generation).
func NewCollaboratorUnavailable(collaborator string, err error) error {
	return &AppError{
		Type:    ErrorTypeCollaboratorUnavailable,
		Message: fmt.Sprintf("collaborator %q unavailable", collaborator),
		Err:     err,
	}
}

// NewMalformedResponse reports a collaborator reply that could not be decoded or violated the
// expected schema.
func NewMalformedResponse(message string, err error) error {
	return &AppError{Type: ErrorTypeMalformedResponse, Message: message, Err: err}
}

// NewPersistenceConflict reports a lost create race or failed conditional write.
func NewPersistenceConflict(message string, err error) error {
	return &AppError{Type: ErrorTypePersistenceConflict, Message: message, Err: err}
}

// NewPersistenceFailure reports an unreachable or failing backend.
func NewPersistenceFailure(message string, err error) error {
	return &AppError{Type: ErrorTypePersistenceFailure, Message: message, Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Type checking functions

// TypeOf returns the ErrorType of the first AppError in the chain, or empty string.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return TypeOf(err) == ErrorTypeInternal
}

// IsConflict checks if an error is a persistence conflict
func IsConflict(err error) bool {
	return TypeOf(err) == ErrorTypePersistenceConflict
}

// IsPersistenceFailure checks if an error is a persistence failure
func IsPersistenceFailure(err error) bool {
	return TypeOf(err) == ErrorTypePersistenceFailure
}

// IsCollaboratorUnavailable checks if an error is a collaborator timeout or transport failure
func IsCollaboratorUnavailable(err error) bool {
	return TypeOf(err) == ErrorTypeCollaboratorUnavailable
}

// IsMalformedResponse checks if an error is a malformed collaborator reply
func IsMalformedResponse(err error) bool {
	return TypeOf(err) == ErrorTypeMalformedResponse
}
