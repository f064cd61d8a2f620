package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures for the router.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindTransient    Kind = "transient"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
)

// Error is a typed domain error. Message is safe to show to chat users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Kind so that errors.Is(err, ErrTransient) works for wrapped values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrTransient    = &Error{Kind: KindTransient, Message: "record store unavailable"}
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "you are not allowed to use this command"}
)

// Transient wraps a record store failure.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Message: op, Err: err}
}

// InvalidInput builds a user-visible validation error.
func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// KindOf returns the kind of err, or "" for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the short reply shown in chat for err.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "❌ Something went wrong, please try again later"
	}
	switch e.Kind {
	case KindInvalidInput, KindUnauthorized:
		return "❌ " + e.Message
	case KindNotFound:
		return "❌ Not found"
	default:
		return "❌ Something went wrong, please try again later"
	}
}
