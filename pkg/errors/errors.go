// Package errors defines the error kinds the API turns into HTTP statuses.
// Domain packages declare their sentinels with these constructors.
package errors

import "fmt"

type kind struct {
	message string
}

func (e *kind) Error() string {
	return e.message
}

// ValidationError is a request the API refuses as given (400)
type ValidationError struct{ kind }

func NewValidationError(message string) *ValidationError {
	return &ValidationError{kind{message: message}}
}

func NewValidationErrorf(format string, args ...interface{}) *ValidationError {
	return NewValidationError(fmt.Sprintf(format, args...))
}

// UnauthorizedError is a missing or unusable API key (401)
type UnauthorizedError struct{ kind }

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{kind{message: message}}
}

// PermissionError is a valid key used where it is not allowed (403)
type PermissionError struct{ kind }

func NewPermissionError(message string) *PermissionError {
	return &PermissionError{kind{message: message}}
}

// NotFoundError (404)
type NotFoundError struct{ kind }

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{kind{message: message}}
}

// ConflictError (409)
type ConflictError struct{ kind }

func NewConflictError(message string) *ConflictError {
	return &ConflictError{kind{message: message}}
}

// TooManyRequestsError is an exhausted rate limit window (429)
type TooManyRequestsError struct{ kind }

func NewTooManyRequestsError(message string) *TooManyRequestsError {
	return &TooManyRequestsError{kind{message: message}}
}

// ServiceUnavailableError is a failing WhatsApp backend or dependency (503)
type ServiceUnavailableError struct{ kind }

func NewServiceUnavailableError(message string) *ServiceUnavailableError {
	return &ServiceUnavailableError{kind{message: message}}
}
