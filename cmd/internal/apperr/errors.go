// Package apperr defines the error kinds shared by stores, services and HTTP handlers.
//
// Errors are raised close to their cause as *Error values carrying a sentinel Kind.
// The HTTP layer maps kinds to status codes in exactly one place (httpx.WriteError).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel kinds (stable for errors.Is).
var (
	ErrValidation      = errors.New("validation_error")
	ErrUnauthenticated = errors.New("authentication_error")
	ErrForbidden       = errors.New("authorization_error")
	ErrNotFound        = errors.New("not_found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate_limited")
)

// FieldError is a single per-field validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a typed operation error.
// Msg is safe to show to clients; do not put secrets or internals in it.
type Error struct {
	Op     string
	Kind   error
	Msg    string
	Fields []FieldError

	// RetryAfter is only meaningful for ErrRateLimited.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// New builds an *Error of the given kind.
func New(op string, kind error, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// Validation builds a validation error with per-field messages.
func Validation(op string, fields ...FieldError) *Error {
	return &Error{Op: op, Kind: ErrValidation, Msg: "Validation failed", Fields: fields}
}

// Field is shorthand for a FieldError literal.
func Field(field, msg string) FieldError {
	return FieldError{Field: field, Message: msg}
}

// Unauthenticated builds an ErrUnauthenticated error.
func Unauthenticated(op, msg string) *Error { return New(op, ErrUnauthenticated, msg) }

// Forbidden builds an ErrForbidden error.
func Forbidden(op, msg string) *Error { return New(op, ErrForbidden, msg) }

// NotFound builds an ErrNotFound error.
func NotFound(op, msg string) *Error { return New(op, ErrNotFound, msg) }

// Status maps an error to its HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsValidation reports whether err represents ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsForbidden reports whether err represents ErrForbidden.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err represents ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
