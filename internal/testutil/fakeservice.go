// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"taskman/internal/service"
)

// FakeService is an in-memory implementation of service.Service and
// service.Authenticator for testing.
type FakeService struct {
	mu     sync.RWMutex
	tasks  []service.Task
	users  map[string]string // email -> password
	nextID int
	calls  map[string]int

	// Error injection for testing
	LoginErr    error
	RegisterErr error
	ListErr     error
	CreateErr   error
	UpdateErr   error
	DeleteErr   error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		users: make(map[string]string),
		calls: make(map[string]int),
	}
}

// AddUser registers credentials accepted by Login.
func (f *FakeService) AddUser(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = password
}

// AddTask seeds a task and returns it.
func (f *FakeService) AddTask(id, title string) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:          id,
		Title:       title,
		Description: title + " description",
		Status:      service.StatusPending,
	}
	f.tasks = append(f.tasks, t)
	return t
}

// PutTask seeds a fully specified task.
func (f *FakeService) PutTask(t service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns how many times method was invoked.
func (f *FakeService) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// TotalCalls returns the number of remote calls of any kind.
func (f *FakeService) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// Login implements service.Authenticator.
func (f *FakeService) Login(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Login"]++
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	want, ok := f.users[email]
	if !ok || want != password {
		return "", fmt.Errorf("%w: status 400", service.ErrInvalidCredentials)
	}
	return "token-" + email, nil
}

// Register implements service.Authenticator.
func (f *FakeService) Register(ctx context.Context, req service.RegisterRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Register"]++
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	if _, exists := f.users[req.Email]; exists {
		return fmt.Errorf("user already exists: %s", req.Email)
	}
	f.users[req.Email] = req.Password
	return nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListTasks"]++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, fields service.Fields) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateTask"]++
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	f.nextID++
	t := fromFields(fmt.Sprintf("srv-%d", f.nextID), fields)
	f.tasks = append(f.tasks, t)
	return t, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, fields service.Fields) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateTask"]++
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i] = fromFields(id, fields)
			return f.tasks[i], nil
		}
	}
	return service.Task{}, service.ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteTask"]++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return service.ErrNotFound
}

func fromFields(id string, fields service.Fields) service.Task {
	status := fields.Status
	if status == "" {
		status = service.StatusPending
	}
	return service.Task{
		ID:          id,
		Title:       fields.Title,
		Description: fields.Description,
		Status:      status,
		DueDate:     fields.DueDate,
		Category:    fields.Category,
	}
}
