// Package apperrors holds the error kinds the API surfaces to clients.
// Anything that is not an *Error is treated as an internal failure and is
// never exposed with its original message.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	Conflict
	Unauthorized
	Forbidden
	NotFound
	InvalidState
	InsufficientData
)

func (k Kind) String() string {
	switch k {
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case InvalidState:
		return "invalid_state"
	case InsufficientData:
		return "insufficient_data"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or Internal if err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
