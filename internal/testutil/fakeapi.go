package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// fakeAPIKey signs the bearer tokens issued by FakeAPI.
var fakeAPIKey = []byte("taskman-fake-api")

// APITask is the JSON document FakeAPI stores and returns.
type APITask struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate,omitempty"`
	Category    string `json:"category,omitempty"`
	User        string `json:"user"`
}

type ctxKey string

const userKey ctxKey = "user"

// FakeAPI is an in-process implementation of the task REST API
// (auth + CRUD) served over httptest.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string][]byte // email -> bcrypt hash
	tasks    map[string][]APITask
	requests map[string]int // "METHOD /path-template" -> count
	lastAuth string
}

// NewFakeAPI starts a FakeAPI and stops it when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	api := &FakeAPI{
		users:    make(map[string][]byte),
		tasks:    make(map[string][]APITask),
		requests: make(map[string]int),
	}
	api.Server = httptest.NewServer(api.Router())
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the base URL of the server.
func (a *FakeAPI) URL() string { return a.Server.URL }

// Router returns the API routes.
func (a *FakeAPI) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(a.count)
	r.HandleFunc("/api/auth/register", a.register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", a.login).Methods(http.MethodPost)

	tasks := r.PathPrefix("/api/tasks").Subrouter()
	tasks.Use(a.bearer)
	tasks.HandleFunc("", a.listTasks).Methods(http.MethodGet)
	tasks.HandleFunc("", a.createTask).Methods(http.MethodPost)
	tasks.HandleFunc("/{id}", a.updateTask).Methods(http.MethodPut)
	tasks.HandleFunc("/{id}", a.deleteTask).Methods(http.MethodDelete)
	return r
}

// AddUser creates an account directly.
func (a *FakeAPI) AddUser(t testing.TB, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[email] = hash
}

// IssueToken returns a valid bearer token for email.
func (a *FakeAPI) IssueToken(t testing.TB, email string) string {
	t.Helper()
	tok, err := signToken(email)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

// SeedTask stores a task for email and returns it with its server ID.
func (a *FakeAPI) SeedTask(email string, task APITask) APITask {
	a.mu.Lock()
	defer a.mu.Unlock()
	task.ID = uuid.NewString()
	task.User = email
	if task.Status == "" {
		task.Status = "pending"
	}
	a.tasks[email] = append(a.tasks[email], task)
	return task
}

// TasksOf returns the stored tasks of email.
func (a *FakeAPI) TasksOf(email string) []APITask {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]APITask, len(a.tasks[email]))
	copy(out, a.tasks[email])
	return out
}

// Requests returns how many requests matched the route, e.g. "GET /api/tasks".
func (a *FakeAPI) Requests(route string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[route]
}

// TotalRequests returns the number of requests served.
func (a *FakeAPI) TotalRequests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.requests {
		n += c
	}
	return n
}

// LastAuthorization returns the Authorization header of the last request.
func (a *FakeAPI) LastAuthorization() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAuth
}

func (a *FakeAPI) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		a.mu.Lock()
		a.requests[r.Method+" "+route]++
		a.lastAuth = r.Header.Get("Authorization")
		a.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (a *FakeAPI) bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "No token, authorization denied"})
			return
		}
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (interface{}, error) {
			return fakeAPIKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || claims.Subject == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is not valid"})
			return
		}
		ctx := context.WithValue(r.Context(), userKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" || c.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request payload"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.MinCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to hash password"})
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.users[c.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "User already exists"})
		return
	}
	a.users[c.Email] = hash
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered"})
}

func (a *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request payload"})
		return
	}
	a.mu.Lock()
	hash, ok := a.users[c.Email]
	a.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(c.Password)) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
		return
	}
	tok, err := signToken(c.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (a *FakeAPI) listTasks(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(userKey).(string)
	writeJSON(w, http.StatusOK, a.TasksOf(user))
}

func (a *FakeAPI) createTask(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(userKey).(string)
	task, ok := decodeTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, a.SeedTask(user, task))
}

func (a *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(userKey).(string)
	id := mux.Vars(r)["id"]
	task, keys, ok := decodeTaskKeys(w, r)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, t := range a.tasks[user] {
		if t.ID == id {
			// Keys missing from the body keep their stored value, like a
			// document store applying the body as a partial update.
			if _, ok := keys["dueDate"]; !ok {
				task.DueDate = t.DueDate
			}
			if _, ok := keys["category"]; !ok {
				task.Category = t.Category
			}
			task.ID = id
			task.User = user
			a.tasks[user][i] = task
			writeJSON(w, http.StatusOK, task)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

func (a *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(userKey).(string)
	id := mux.Vars(r)["id"]

	a.mu.Lock()
	defer a.mu.Unlock()
	tasks := a.tasks[user]
	for i, t := range tasks {
		if t.ID == id {
			a.tasks[user] = append(tasks[:i], tasks[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Task removed"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

// decodeTask reads a task body. Due dates are stored as full timestamps,
// the way a document store serializes them.
func decodeTask(w http.ResponseWriter, r *http.Request) (APITask, bool) {
	task, _, ok := decodeTaskKeys(w, r)
	return task, ok
}

// decodeTaskKeys is decodeTask that also reports which keys the body carried.
func decodeTaskKeys(w http.ResponseWriter, r *http.Request) (APITask, map[string]json.RawMessage, bool) {
	var task APITask
	var keys map[string]json.RawMessage
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, &keys)
	}
	if err == nil {
		err = json.Unmarshal(body, &task)
	}
	if err != nil || task.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid task"})
		return APITask{}, nil, false
	}
	if task.Status == "" {
		task.Status = "pending"
	}
	switch task.Status {
	case "pending", "in_progress", "completed":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid status"})
		return APITask{}, nil, false
	}
	if task.DueDate != "" {
		due, err := time.Parse("2006-01-02", task.DueDate)
		if err != nil {
			due, err = time.Parse(time.RFC3339, task.DueDate)
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid due date"})
			return APITask{}, nil, false
		}
		task.DueDate = due.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return task, keys, true
}

func signToken(email string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  email,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(fakeAPIKey)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
