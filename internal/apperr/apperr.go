// Package apperr groups backend and local failures into a small set of
// display categories and keeps all backend error-string inspection in one
// place.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the display category of an error.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindServer     Kind = "server"
	KindCache      Kind = "cache"
	KindValidation Kind = "validation"
	KindFile       Kind = "file"
	KindPermission Kind = "permission"
	KindPayment    Kind = "payment"
	KindDatabase   Kind = "database"
	KindUnknown    Kind = "unknown"
)

// Error carries the category, a user-displayable message and optional
// backend code and details.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error, keeping it unwrappable.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Message: err.Error(), cause: err}
}

// KindOf returns the kind of err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}

	return KindUnknown
}

// CodeOf returns the backend code attached to err, if any.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}

	return ""
}
