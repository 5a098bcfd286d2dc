// Package apperror defines the application's error taxonomy.
//
// Services return errors built from these sentinels; the HTTP layer maps
// them to status codes in one place (handler/response.go) using errors.Is.
// Nothing below the handler layer knows about HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream failure")
	ErrInternal        = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel this error wraps
	Message string // human-readable message, safe to return to clients
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthenticated covers missing/invalid/expired tokens and bad credentials.
// The message must never distinguish "unknown user" from "wrong password";
// both login failure paths return the same message so responses can't be
// used for username enumeration.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Forbidden indicates the caller is known but not permitted
// (allowlist exclusion or role gate). HTTP handlers map this to 403.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Upstream wraps a failure from a remote collaborator (identity provider,
// image host). The cause is kept in the chain for logs; the message stays
// generic so remote error bodies are never echoed to clients.
func Upstream(message string, cause error) *AppError {
	err := ErrUpstream
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrUpstream, cause)
	}
	return &AppError{
		Err:     err,
		Message: message,
	}
}

// Internal marks an invariant violation that should be unreachable.
// The handler layer logs it and surfaces a generic 500.
func Internal(message string) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: message,
	}
}
