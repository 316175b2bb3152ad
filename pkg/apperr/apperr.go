// Package apperr defines the client-facing error taxonomy. Handlers and
// services return *Error for anything the caller caused; every other error
// is treated as internal and never shown to the client.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a client-facing failure.
type Kind int

const (
	Internal Kind = iota
	BadRequest
	Unauthorized
	Forbidden
	NotFound
	Conflict
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

func New(kind Kind, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Sentinels for errors.Is checks.
var (
	ErrBadRequest   = &Error{Kind: BadRequest}
	ErrUnauthorized = &Error{Kind: Unauthorized}
	ErrForbidden    = &Error{Kind: Forbidden}
	ErrNotFound     = &Error{Kind: NotFound}
	ErrConflict     = &Error{Kind: Conflict}
)

// KindOf unwraps err and reports its Kind; Internal for anything that is
// not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Validation builds the BadRequest returned for rejected payloads.
func Validation(details []string) *Error {
	return &Error{Kind: BadRequest, Message: "Validation failed", Details: details}
}
