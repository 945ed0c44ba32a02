// Package apperr defines the error taxonomy shared by services and handlers.
// Services classify failures with one of the Kind constructors; handlers
// translate the kind into an HTTP status. Validation errors are raised before
// any store mutation, so an InvalidArgument never leaves partial state behind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict" // reserved for concurrent-edit detection
	KindInternal        Kind = "internal"
)

// Error carries a kind alongside the wrapped cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the classification of the error.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the user-facing message without the wrapped cause.
func (e *Error) Message() string { return e.msg }

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// InvalidArgument reports a malformed or missing parameter.
func InvalidArgument(format string, args ...interface{}) *Error {
	return newError(KindInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound reports a missing resource.
func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, fmt.Sprintf(format, args...))
}

// Forbidden reports a caller lacking the required role or ownership.
func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, fmt.Sprintf(format, args...))
}

// Internal wraps a store or dispatch failure.
func Internal(err error, format string, args ...interface{}) *Error {
	return wrap(KindInternal, fmt.Sprintf(format, args...), err)
}

// KindOf extracts the kind from err, defaulting to KindInternal for errors
// raised outside this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err, or a generic one for
// errors raised outside this package.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.msg
	}
	return "unexpected error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
