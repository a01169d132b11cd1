package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	ErrKindValidation   ErrorKind = "VALIDATION_ERROR"
	ErrKindNotFound     ErrorKind = "NOT_FOUND"
	ErrKindConflict     ErrorKind = "STATE_CONFLICT"
	ErrKindUnauthorized ErrorKind = "UNAUTHORIZED"
	ErrKindForbidden    ErrorKind = "FORBIDDEN"
	ErrKindDependency   ErrorKind = "DEPENDENCY_ERROR"
	ErrKindUnavailable  ErrorKind = "UNAVAILABLE"
)

// AppError is the synchronous error value returned by the coordinator.
// The handler layer maps Kind onto an HTTP status; errors are never used
// for control flow beyond that mapping.
type AppError struct {
	Kind    ErrorKind         `json:"kind"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) StatusCode() int {
	switch e.Kind {
	case ErrKindValidation, ErrKindConflict:
		return http.StatusBadRequest
	case ErrKindNotFound:
		return http.StatusNotFound
	case ErrKindUnauthorized:
		return http.StatusUnauthorized
	case ErrKindForbidden:
		return http.StatusForbidden
	case ErrKindDependency, ErrKindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(message string, details map[string]string) *AppError {
	return &AppError{Kind: ErrKindValidation, Message: message, Details: details}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Kind: ErrKindNotFound, Message: resource + " not found"}
}

// NewConflictError names the expected vs actual state so callers can see
// which guard rejected the transition.
func NewConflictError(message string) *AppError {
	return &AppError{Kind: ErrKindConflict, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: ErrKindForbidden, Message: message}
}

func NewDependencyError(message string, cause error) *AppError {
	return &AppError{Kind: ErrKindDependency, Message: message, cause: cause}
}

// NewPersistenceError surfaces a store failure as a generic retryable
// error. The coordinator performs no automatic retries itself.
func NewPersistenceError(op string, cause error) *AppError {
	return &AppError{Kind: ErrKindUnavailable, Message: "storage operation failed: " + op, cause: cause}
}

// AsAppError unwraps err into an *AppError, defaulting unknown errors to
// the retryable kind.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: ErrKindUnavailable, Message: err.Error(), cause: err}
}
