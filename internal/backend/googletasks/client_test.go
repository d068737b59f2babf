package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	tasks "google.golang.org/api/tasks/v1"

	"taskman/internal/service"
)

const defaultListRealID = "LDEFAULT"

// fakeTasksAPI serves the subset of the Google Tasks REST API the client uses.
type fakeTasksAPI struct {
	mu     sync.Mutex
	lists  []*tasks.TaskList
	items  map[string][]*tasks.Task
	nextID int
}

func newFakeTasksAPI() *fakeTasksAPI {
	return &fakeTasksAPI{
		lists: []*tasks.TaskList{{Id: defaultListRealID, Title: "My Tasks"}},
		items: map[string][]*tasks.Task{},
	}
}

func (f *fakeTasksAPI) addList(id, title string) {
	f.lists = append(f.lists, &tasks.TaskList{Id: id, Title: title})
}

func (f *fakeTasksAPI) addTask(listID string, t *tasks.Task) {
	f.items[listID] = append(f.items[listID], t)
}

func (f *fakeTasksAPI) listID(id string) string {
	if id == DefaultListID {
		return defaultListRealID
	}
	return id
}

func (f *fakeTasksAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := strings.Index(r.URL.Path, "tasks/v1/")
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(r.URL.Path[i+len("tasks/v1/"):], "/")

	switch {
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "lists":
		if r.Method == http.MethodPost {
			var tl tasks.TaskList
			json.NewDecoder(r.Body).Decode(&tl)
			f.nextID++
			tl.Id = fmt.Sprintf("L%d", f.nextID)
			f.lists = append(f.lists, &tl)
			writeJSON(w, &tl)
			return
		}
		writeJSON(w, &tasks.TaskLists{Items: f.lists})
	case len(parts) == 4 && parts[0] == "users" && parts[2] == "lists":
		id := f.listID(parts[3])
		for _, l := range f.lists {
			if l.Id == id {
				writeJSON(w, l)
				return
			}
		}
		notFound(w)
	case len(parts) == 3 && parts[0] == "lists" && parts[2] == "tasks":
		id := f.listID(parts[1])
		if r.Method == http.MethodPost {
			var t tasks.Task
			json.NewDecoder(r.Body).Decode(&t)
			f.nextID++
			t.Id = fmt.Sprintf("T%d", f.nextID)
			f.items[id] = append(f.items[id], &t)
			writeJSON(w, &t)
			return
		}
		writeJSON(w, &tasks.Tasks{Items: f.items[id]})
	case len(parts) == 4 && parts[0] == "lists" && parts[2] == "tasks":
		id := f.listID(parts[1])
		for n, t := range f.items[id] {
			if t.Id != parts[3] {
				continue
			}
			switch r.Method {
			case http.MethodDelete:
				f.items[id] = append(f.items[id][:n], f.items[id][n+1:]...)
				w.WriteHeader(http.StatusNoContent)
			case http.MethodPatch:
				var patch tasks.Task
				json.NewDecoder(r.Body).Decode(&patch)
				t.Title, t.Notes, t.Status, t.Due = patch.Title, patch.Notes, patch.Status, patch.Due
				writeJSON(w, t)
			default:
				writeJSON(w, t)
			}
			return
		}
		notFound(w)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"error":{"code":404,"message":"Not Found"}}`)
}

// redirectTransport sends every request to the test server.
type redirectTransport struct {
	target *url.URL
}

func (t redirectTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	r.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newTestClient(t *testing.T, api *fakeTasksAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)
	c, err := NewWithHTTPClient(context.Background(), &http.Client{Transport: redirectTransport{target: target}})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return c
}

func TestListTasks_MapsListsToCategories(t *testing.T) {
	api := newFakeTasksAPI()
	api.addList("LWORK", "Work")
	api.addTask("LWORK", &tasks.Task{Id: "w1", Title: "Report", Status: "completed"})
	api.addTask(defaultListRealID, &tasks.Task{Id: "d1", Title: "Milk", Notes: "2 liters", Status: "needsAction", Due: "2024-05-01T00:00:00.000Z"})
	c := newTestClient(t, api)

	got, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tasks, want 2", len(got))
	}

	milk := got[0]
	if milk.ID != "@default/d1" || milk.Category != "" || milk.Status != service.StatusPending {
		t.Errorf("default task = %+v", milk)
	}
	if milk.Description != "2 liters" || milk.DueDate != "2024-05-01T00:00:00.000Z" {
		t.Errorf("default task fields = %+v", milk)
	}

	report := got[1]
	if report.ID != "LWORK/w1" || report.Category != "Work" || report.Status != service.StatusCompleted {
		t.Errorf("work task = %+v", report)
	}
}

func TestCreateTask_CreatesCategoryList(t *testing.T) {
	api := newFakeTasksAPI()
	c := newTestClient(t, api)

	task, err := c.CreateTask(context.Background(), service.Fields{
		Title:       "Ship",
		Description: "v1",
		Status:      service.StatusInProgress,
		DueDate:     "2024-06-30",
		Category:    "Release",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Category != "Release" {
		t.Errorf("Category = %q, want Release", task.Category)
	}
	// in_progress has no Google equivalent
	if task.Status != service.StatusPending {
		t.Errorf("Status = %q, want pending", task.Status)
	}
	if task.DueDate != "2024-06-30T00:00:00.000Z" {
		t.Errorf("DueDate = %q", task.DueDate)
	}
	if len(api.lists) != 2 || api.lists[1].Title != "Release" {
		t.Errorf("lists = %+v, want Release list created", api.lists)
	}
}

func TestCreateTask_ReusesListCaseInsensitive(t *testing.T) {
	api := newFakeTasksAPI()
	api.addList("LWORK", "Work")
	c := newTestClient(t, api)

	task, err := c.CreateTask(context.Background(), service.Fields{Title: "a", Description: "b", Category: " work "})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if !strings.HasPrefix(task.ID, "LWORK/") {
		t.Errorf("ID = %q, want in LWORK", task.ID)
	}
	if len(api.lists) != 2 {
		t.Errorf("got %d lists, want 2", len(api.lists))
	}
}

func TestUpdateTask_Patch(t *testing.T) {
	api := newFakeTasksAPI()
	api.addTask(defaultListRealID, &tasks.Task{Id: "d1", Title: "Milk", Status: "needsAction"})
	c := newTestClient(t, api)

	task, err := c.UpdateTask(context.Background(), "@default/d1", service.Fields{
		Title: "Oat milk", Description: "x", Status: service.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if task.ID != "@default/d1" || task.Title != "Oat milk" || task.Status != service.StatusCompleted {
		t.Errorf("task = %+v", task)
	}
}

func TestUpdateTask_CategoryChangeMovesTask(t *testing.T) {
	api := newFakeTasksAPI()
	api.addList("LWORK", "Work")
	api.addTask(defaultListRealID, &tasks.Task{Id: "d1", Title: "Milk", Status: "needsAction"})
	c := newTestClient(t, api)

	task, err := c.UpdateTask(context.Background(), "@default/d1", service.Fields{
		Title: "Milk", Description: "x", Category: "Work",
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !strings.HasPrefix(task.ID, "LWORK/") || task.Category != "Work" {
		t.Errorf("task = %+v", task)
	}
	if len(api.items[defaultListRealID]) != 0 {
		t.Errorf("task still in default list")
	}
}

func TestDeleteTask(t *testing.T) {
	api := newFakeTasksAPI()
	api.addTask(defaultListRealID, &tasks.Task{Id: "d1", Title: "Milk"})
	c := newTestClient(t, api)

	if err := c.DeleteTask(context.Background(), "@default/d1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	err := c.DeleteTask(context.Background(), "@default/d1")
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSplitID(t *testing.T) {
	tests := []struct {
		id       string
		list     string
		task     string
		wantFail bool
	}{
		{id: "@default/abc", list: "@default", task: "abc"},
		{id: "L1/T2", list: "L1", task: "T2"},
		{id: "noslash", wantFail: true},
		{id: "/abc", wantFail: true},
		{id: "L1/", wantFail: true},
	}
	for _, tt := range tests {
		list, task, err := splitID(tt.id)
		if tt.wantFail {
			if !errors.Is(err, service.ErrNotFound) {
				t.Errorf("splitID(%q) err = %v, want ErrNotFound", tt.id, err)
			}
			continue
		}
		if err != nil || list != tt.list || task != tt.task {
			t.Errorf("splitID(%q) = %q, %q, %v", tt.id, list, task, err)
		}
	}
}

func TestToDue(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "2024-05-01", want: "2024-05-01T00:00:00.000Z"},
		{in: "2024-05-01T13:00:00.000Z", want: "2024-05-01T00:00:00.000Z"},
		{in: "tomorrow", wantErr: true},
	}
	for _, tt := range tests {
		got, err := toDue(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("toDue(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("toDue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
