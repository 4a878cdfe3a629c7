package services

import (
	"errors"
	"net/http"
)

// Kind classifies a service failure by how a caller should react to it.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
)

// Error is a failure with a client-facing message. Err, when set, is the
// underlying cause and is only logged.
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

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
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

func validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func forbidden(msg string) error  { return &Error{Kind: KindForbidden, Message: msg} }
func notFound(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }

func internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// AsError unwraps err into a service Error. Anything else becomes an
// internal error with a generic message.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Kind: KindInternal, Message: "Server error", Err: err}
}
