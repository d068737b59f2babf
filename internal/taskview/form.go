package taskview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taskman/internal/apperr"
	"taskman/internal/service"
)

var (
	// ErrTitleRequired is returned when submitting without a title.
	ErrTitleRequired = errors.New("title required")

	// ErrDescriptionRequired is returned when submitting without a description.
	ErrDescriptionRequired = errors.New("description required")

	// ErrInvalidDueDate is returned for a due date that is not YYYY-MM-DD.
	ErrInvalidDueDate = errors.New("invalid due date")

	// ErrInFlight is returned when a submit or delete is already pending.
	ErrInFlight = errors.New("request already in progress")
)

// Validate checks the required fields. It is applied before any remote call.
func Validate(f service.Fields) error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(f.Description) == "" {
		return ErrDescriptionRequired
	}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("invalid status: %s", f.Status)
	}
	return ValidateDue(strings.TrimSpace(f.DueDate))
}

// ValidateDue accepts an empty value or a YYYY-MM-DD date.
func ValidateDue(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("%w: %s (want YYYY-MM-DD)", ErrInvalidDueDate, s)
	}
	return nil
}

// normalize fills in the default status.
func normalize(f service.Fields) service.Fields {
	if f.Status == "" {
		f.Status = service.StatusPending
	}
	return f
}

// Form is the create-only task form.
type Form struct {
	svc service.Service

	mu      sync.Mutex
	fields  service.Fields
	err     error
	pending bool
}

// NewForm creates a form with default fields.
func NewForm(svc service.Service) *Form {
	return &Form{svc: svc, fields: service.DefaultFields()}
}

// Fields returns the entered values.
func (f *Form) Fields() service.Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// SetFields replaces the entered values.
func (f *Form) SetFields(fields service.Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = fields
}

// Err returns the last submit error.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Begin validates the fields and marks a submit as pending.
func (f *Form) Begin() (service.Fields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return service.Fields{}, ErrInFlight
	}
	fields := normalize(f.fields)
	if err := Validate(fields); err != nil {
		return service.Fields{}, err
	}
	f.pending = true
	return fields, nil
}

// Resolve applies the result of a create call. Success resets the fields and
// clears the error; failure keeps the fields and records TaskSubmitFailed.
func (f *Form) Resolve(task service.Task, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	if err != nil {
		f.err = apperr.New(apperr.TaskSubmitFailed, err)
		return f.err
	}
	f.fields = service.DefaultFields()
	f.err = nil
	return nil
}

// Submit creates a task from the entered fields.
func (f *Form) Submit(ctx context.Context) (service.Task, error) {
	fields, err := f.Begin()
	if err != nil {
		return service.Task{}, err
	}
	task, err := f.svc.CreateTask(ctx, fields)
	if err := f.Resolve(task, err); err != nil {
		return service.Task{}, err
	}
	return task, nil
}
