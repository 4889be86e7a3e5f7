// Package apperr classifies failures so that a single boundary can turn them
// into user-facing messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the class of a failure.
type Kind string

const (
	KindInternal    Kind = "internal"
	KindMalformed   Kind = "malformed"
	KindNotFound    Kind = "not_found"
	KindUnavailable Kind = "unavailable"
	KindForbidden   Kind = "forbidden"
	KindConflict    Kind = "conflict"
)

// Error carries a Kind, a short message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error around err. Wrap returns nil for a nil err.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
