// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials means the server answered and rejected the login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnreachable means no response was received from the server.
	ErrUnreachable = errors.New("server unreachable")

	// ErrUnauthorized means the bearer token was missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the addressed task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupported means the backend does not offer the operation.
	ErrUnsupported = errors.New("not supported by backend")
)

// Service defines the interface for task backend operations.
// A Service is bound to one session token; every call is authenticated with it.
// Commands and views never talk HTTP directly.
type Service interface {
	// ListTasks returns all tasks of the user in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns the server's representation.
	CreateTask(ctx context.Context, fields Fields) (Task, error)

	// UpdateTask replaces the fields of task id and returns the server's representation.
	UpdateTask(ctx context.Context, id string, fields Fields) (Task, error)

	// DeleteTask deletes task id.
	DeleteTask(ctx context.Context, id string) error
}

// Authenticator performs the unauthenticated account calls.
type Authenticator interface {
	// Login exchanges credentials for a session token.
	// Returns an error wrapping ErrInvalidCredentials when the server rejects
	// the request and ErrUnreachable when no response was received.
	Login(ctx context.Context, email, password string) (string, error)

	// Register creates an account.
	Register(ctx context.Context, req RegisterRequest) error
}
