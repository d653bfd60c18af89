// Package apperror defines the application's error taxonomy.
//
// Services and registries return these errors; the HTTP layer maps them to
// status codes in one place (handler/response.go). Nothing below the handler
// layer knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// AppError pairs a sentinel error (for errors.Is checks) with a
// human-readable message safe to return to API clients.
type AppError struct {
	Err     error  // sentinel category
	Message string // human-readable, client-safe
	Field   string // optional: input field causing the error
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

// Unauthorized covers missing, invalid, and expired credentials alike.
// Handlers map it to 401. The message deliberately avoids saying which part
// of the credential check failed.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// NotFound is returned both when a resource does not exist and when it exists
// but is owned by someone else. Collapsing the two hides resource existence
// from non-owners.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}
