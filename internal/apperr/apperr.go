// Package apperr classifies failures into the coarse kinds shown to the user.
package apperr

import (
	"errors"

	"taskman/internal/exitcode"
)

// Kind is a user-facing failure class. Each kind has one static message.
type Kind int

const (
	AuthInvalidCredentials Kind = iota + 1
	AuthUnreachable
	TaskFetchFailed
	TaskSubmitFailed
	TaskDeleteFailed
	RegisterFailed
)

var messages = map[Kind]string{
	AuthInvalidCredentials: "Invalid credentials. Please try again.",
	AuthUnreachable:        "Something went wrong. Please try again later.",
	TaskFetchFailed:        "Error fetching tasks. Please try again.",
	TaskSubmitFailed:       "Task submission failed. Please try again.",
	TaskDeleteFailed:       "Error deleting task. Please try again.",
	RegisterFailed:         "Registration failed. Please try again.",
}

// Message returns the static user-facing message for k.
func (k Kind) Message() string {
	if msg, ok := messages[k]; ok {
		return msg
	}
	return "Something went wrong. Please try again later."
}

// ExitCode maps k to a CLI exit code.
func (k Kind) ExitCode() int {
	switch k {
	case AuthInvalidCredentials, AuthUnreachable, RegisterFailed:
		return exitcode.AuthError
	default:
		return exitcode.BackendError
	}
}

// Error carries a Kind and the underlying cause.
// Error() yields only the static message; the cause is for logs.
type Error struct {
	Kind Kind
	Err  error
}

// New wraps err with kind k.
func New(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}

func (e *Error) Error() string { return e.Kind.Message() }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
