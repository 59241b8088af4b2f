package core

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the transport layer
type Kind int

const (
	// KindInternal is anything unexpected: storage failures, bugs
	KindInternal Kind = iota
	// KindNotFound covers unknown ids and ids owned by someone else
	KindNotFound
	// KindConflict covers duplicate emails and tag names
	KindConflict
	// KindUnauthorized covers bad credentials and bad bearer tokens
	KindUnauthorized
	// KindValidation covers field constraint violations
	KindValidation
	// KindBadRequest covers requests that are well formed but not allowed in the current state
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Error is the error type returned by services
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error
func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

// Conflict builds a KindConflict error
func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// Unauthorized builds a KindUnauthorized error
func Unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

// Validation builds a KindValidation error
func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// BadRequest builds a KindBadRequest error
func BadRequest(format string, args ...interface{}) *Error {
	return newError(KindBadRequest, format, args...)
}

// Internal wraps an unexpected error
func Internal(err error, format string, args ...interface{}) *Error {
	e := newError(KindInternal, format, args...)
	e.Err = err
	return e
}

// KindOf returns the Kind of the first *Error in err's chain, KindInternal otherwise
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message safe to show a caller
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Internal Server Error"
}
