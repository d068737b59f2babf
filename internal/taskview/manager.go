package taskview

import (
	"context"
	"sync"

	"taskman/internal/apperr"
	"taskman/internal/service"
)

// Submission is a pending create or update captured by BeginSubmit.
type Submission struct {
	// EditingID is the id of the task being updated; empty for a create.
	EditingID string
	Fields    service.Fields
}

// IsUpdate reports whether the submission updates an existing task.
func (s Submission) IsUpdate() bool { return s.EditingID != "" }

// Manager is the task list with a form that toggles between creating a new
// task and updating the task selected for edit, plus delete.
//
// Remote results are reconciled by id: an update replaces exactly the task
// with the edited id, a create appends, a delete filters. The list is never
// re-fetched as a side effect.
//
// Only one submit or delete may be pending at a time.
type Manager struct {
	svc service.Service

	mu      sync.RWMutex
	tasks   []service.Task
	fields  service.Fields
	editing *service.Task
	err     error
	busy    bool
}

// NewManager creates an empty manager bound to svc.
func NewManager(svc service.Service) *Manager {
	return &Manager{svc: svc, fields: service.DefaultFields()}
}

// Load fetches the task list.
func (m *Manager) Load(ctx context.Context) error {
	tasks, err := m.svc.ListTasks(ctx)
	return m.ResolveLoad(tasks, err)
}

// ResolveLoad applies the result of a ListTasks call.
func (m *Manager) ResolveLoad(tasks []service.Task, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.err = apperr.New(apperr.TaskFetchFailed, err)
		return m.err
	}
	m.tasks = append([]service.Task(nil), tasks...)
	m.err = nil
	return nil
}

// Tasks returns a copy of the local list.
func (m *Manager) Tasks() []service.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]service.Task(nil), m.tasks...)
}

// Fields returns the form values.
func (m *Manager) Fields() service.Fields {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fields
}

// SetFields replaces the form values.
func (m *Manager) SetFields(f service.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields = f
}

// Editing returns the task selected for edit.
func (m *Manager) Editing() (service.Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.editing == nil {
		return service.Task{}, false
	}
	return *m.editing, true
}

// Err returns the last error.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// ClearErr drops the last error.
func (m *Manager) ClearErr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = nil
}

// Busy reports whether a submit or delete is pending.
func (m *Manager) Busy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.busy
}

// Edit selects task for edit and copies its fields into the form.
// The due date is cut to YYYY-MM-DD. No remote call is made.
func (m *Manager) Edit(task service.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := task.Fields()
	f.DueDate = DateOnly(f.DueDate)
	if f.Status == "" {
		f.Status = service.StatusPending
	}
	m.fields = f
	t := task
	m.editing = &t
}

// CancelEdit leaves edit mode and resets the form.
func (m *Manager) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Manager) resetLocked() {
	m.fields = service.DefaultFields()
	m.editing = nil
}

// Move reorders the local list. It never calls the service.
func (m *Manager) Move(from, to int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = Move(m.tasks, from, to)
}

// BeginSubmit validates the form and captures it as a pending submission.
func (m *Manager) BeginSubmit() (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return Submission{}, ErrInFlight
	}
	fields := normalize(m.fields)
	if err := Validate(fields); err != nil {
		return Submission{}, err
	}
	sub := Submission{Fields: fields}
	if m.editing != nil {
		sub.EditingID = m.editing.ID
	}
	m.busy = true
	return sub, nil
}

// Send performs the remote call for sub. It touches no local state and may
// run outside the goroutine that owns the manager.
func (m *Manager) Send(ctx context.Context, sub Submission) (service.Task, error) {
	if sub.IsUpdate() {
		return m.svc.UpdateTask(ctx, sub.EditingID, sub.Fields)
	}
	return m.svc.CreateTask(ctx, sub.Fields)
}

// ResolveSubmit applies the result of Send. On success an update replaces the
// edited task by id, a create appends, and the form leaves edit mode. On
// failure the form and edit mode are kept and TaskSubmitFailed is recorded.
func (m *Manager) ResolveSubmit(sub Submission, task service.Task, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	if err != nil {
		m.err = apperr.New(apperr.TaskSubmitFailed, err)
		return m.err
	}
	if sub.IsUpdate() {
		m.tasks = ReplaceByID(m.tasks, sub.EditingID, task)
	} else {
		m.tasks = append(m.tasks, task)
	}
	m.resetLocked()
	m.err = nil
	return nil
}

// Submit creates or updates a task from the form.
func (m *Manager) Submit(ctx context.Context) (service.Task, error) {
	sub, err := m.BeginSubmit()
	if err != nil {
		return service.Task{}, err
	}
	task, err := m.Send(ctx, sub)
	if err := m.ResolveSubmit(sub, task, err); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// BeginDelete marks a delete of id as pending.
func (m *Manager) BeginDelete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrInFlight
	}
	m.busy = true
	return nil
}

// SendDelete performs the remote delete. It touches no local state.
func (m *Manager) SendDelete(ctx context.Context, id string) error {
	return m.svc.DeleteTask(ctx, id)
}

// ResolveDelete applies the result of SendDelete. On success the task is
// removed by id (and edit mode is left if it was the edited task); on failure
// the list is untouched and TaskDeleteFailed is recorded.
func (m *Manager) ResolveDelete(id string, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	if err != nil {
		m.err = apperr.New(apperr.TaskDeleteFailed, err)
		return m.err
	}
	m.tasks = RemoveByID(m.tasks, id)
	if m.editing != nil && m.editing.ID == id {
		m.resetLocked()
	}
	m.err = nil
	return nil
}

// Delete removes task id remotely and then locally.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.BeginDelete(id); err != nil {
		return err
	}
	return m.ResolveDelete(id, m.SendDelete(ctx, id))
}
