// Package apperr is the error taxonomy shared by stores, handlers and
// middlewares. Every error that reaches the HTTP responder is either an
// *Error, one of the store sentinels, or an unexpected failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthenticated
	KindForbidden
	KindNotFound
)

func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Store sentinels. Collections wrap these so callers can use errors.Is.
var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrInvalidID = errors.New("invalid id")
)

type Error struct {
	Kind    Kind
	Message string
	Details any
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

func (e *Error) Status() int {
	return e.Kind.Status()
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func BadRequest(message string) *Error      { return New(KindBadRequest, message) }
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }
func Forbidden(message string) *Error       { return New(KindForbidden, message) }
func NotFound(message string) *Error        { return New(KindNotFound, message) }
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// DuplicateError carries the field whose uniqueness was violated.
type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s %q", e.Field, e.Value)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}

func Duplicate(field, value string) error {
	return &DuplicateError{Field: field, Value: value}
}

// Classify maps any error to the kind and client-facing message the
// responder should use. The bool reports whether the error was expected;
// unexpected errors are logged and their message may be hidden.
func Classify(err error) (Kind, string, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, appErr.Message, appErr.Kind != KindInternal
	}

	var dup *DuplicateError
	if errors.As(err, &dup) {
		return KindBadRequest, fmt.Sprintf("Duplicate field value: %s. Please use another value!", dup.Field), true
	}

	switch {
	case errors.Is(err, ErrDuplicate):
		return KindBadRequest, "Duplicate field value. Please use another value!", true
	case errors.Is(err, ErrInvalidID):
		return KindBadRequest, "Invalid id.", true
	case errors.Is(err, ErrNotFound):
		return KindNotFound, "No document found with that ID", true
	}

	return KindInternal, err.Error(), false
}
