package taskview

import (
	"context"
	"sync"

	"taskman/internal/apperr"
	"taskman/internal/service"
)

// ListView is the read-only task list with client-side reordering.
// Reordering is local only and never reaches the service.
type ListView struct {
	svc service.Service

	mu    sync.RWMutex
	tasks []service.Task
	err   error
}

// NewListView creates an empty list bound to svc.
func NewListView(svc service.Service) *ListView {
	return &ListView{svc: svc}
}

// Load fetches the task list once, replacing the local order.
// On failure the previous tasks are kept and Err reports TaskFetchFailed.
func (v *ListView) Load(ctx context.Context) error {
	tasks, err := v.svc.ListTasks(ctx)
	return v.ResolveLoad(tasks, err)
}

// ResolveLoad applies the result of a ListTasks call made elsewhere.
func (v *ListView) ResolveLoad(tasks []service.Task, err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.err = apperr.New(apperr.TaskFetchFailed, err)
		return v.err
	}
	v.tasks = append([]service.Task(nil), tasks...)
	v.err = nil
	return nil
}

// Move moves the task at from to position to.
func (v *ListView) Move(from, to int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tasks = Move(v.tasks, from, to)
}

// Tasks returns a copy of the tasks in local order.
func (v *ListView) Tasks() []service.Task {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]service.Task(nil), v.tasks...)
}

// Len returns the number of tasks.
func (v *ListView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.tasks)
}

// Err returns the last fetch error, if any.
func (v *ListView) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}
