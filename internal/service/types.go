// Package service defines the backend-agnostic interface for task operations.
package service

import "fmt"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Label returns the human-readable status name.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// Next returns the status following s, wrapping around.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusPending
}

// Prev returns the status preceding s, wrapping around.
func (s Status) Prev() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+len(Statuses)-1)%len(Statuses)]
		}
	}
	return StatusPending
}

// ParseStatus parses a status name. Empty input yields StatusPending.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return StatusPending, nil
	}
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return st, nil
}

// Task represents a single task as returned by the remote service.
// ID is always assigned by the server.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      Status
	DueDate     string // optional; date or full timestamp as sent by the server
	Category    string // optional
}

// Fields returns the editable fields of the task.
func (t Task) Fields() Fields {
	return Fields{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		DueDate:     t.DueDate,
		Category:    t.Category,
	}
}

// Fields holds the user-editable task attributes (a Task minus its ID).
type Fields struct {
	Title       string
	Description string
	Status      Status
	DueDate     string
	Category    string
}

// DefaultFields returns empty fields with the default status.
func DefaultFields() Fields {
	return Fields{Status: StatusPending}
}

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}
