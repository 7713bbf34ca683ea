// Package apperr defines the error kinds surfaced by the API and their HTTP mapping.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies an error for the client.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error carries a client-safe message and the internal cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Validation reports missing or malformed input.
func Validation(msg string) *Error { return newError(KindValidation, msg, nil) }

// Duplicate reports a uniqueness violation.
func Duplicate(msg string, cause error) *Error { return newError(KindDuplicate, msg, cause) }

// Unauthenticated reports a missing, invalid or rejected credential.
func Unauthenticated(msg string, cause error) *Error {
	return newError(KindUnauthenticated, msg, cause)
}

// Forbidden reports a valid principal acting outside its role.
func Forbidden(msg string) *Error { return newError(KindForbidden, msg, nil) }

// NotFound reports an entity that is absent or outside the caller's tenant.
func NotFound(msg string) *Error { return newError(KindNotFound, msg, nil) }

// Conflict reports a state that blocks the operation, e.g. a referenced row.
func Conflict(msg string, cause error) *Error { return newError(KindConflict, msg, cause) }

// Unavailable reports a retriable dependency failure such as a store timeout.
func Unavailable(msg string, cause error) *Error { return newError(KindUnavailable, msg, cause) }

// Internal wraps an unexpected failure.
func Internal(cause error) *Error { return newError(KindInternal, "Internal server error.", cause) }

// KindOf returns the kind of the first *Error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error."
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicate, KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retriable reports whether the caller may retry the operation unchanged.
func Retriable(err error) bool {
	return KindOf(err) == KindUnavailable
}
