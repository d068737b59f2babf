// Package restapi implements service.Service against the task REST API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"taskman/internal/logging"
	"taskman/internal/service"
)

const (
	// APITimeout is the timeout for a single API call.
	APITimeout = 10 * time.Second

	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"
	tasksPath    = "/api/tasks"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = logging.OrDiscard(l) }
}

// Client talks to the REST task service. A Client created with New carries a
// bearer token on every request; one created with NewAuth carries none and
// only serves the account endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a client whose requests are authenticated with token.
// The HTTP client in ctx (oauth2.HTTPClient) is used as the base transport
// when present.
func New(ctx context.Context, baseURL, token string, opts ...Option) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return newClient(baseURL, oauth2.NewClient(ctx, src), opts)
}

// NewAuth creates a client for login and registration.
func NewAuth(ctx context.Context, baseURL string, opts ...Option) *Client {
	// With a nil token source oauth2.NewClient returns the context's client.
	return newClient(baseURL, oauth2.NewClient(ctx, nil), opts)
}

func newClient(baseURL string, hc *http.Client, opts []Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireTask is the task document exchanged with the server.
type wireTask struct {
	MongoID     string  `json:"_id,omitempty"`
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	DueDate     *string `json:"dueDate,omitempty"`
	Category    *string `json:"category,omitempty"`
}

func (w wireTask) toTask() service.Task {
	t := service.Task{
		ID:          w.MongoID,
		Title:       w.Title,
		Description: w.Description,
		Status:      service.Status(w.Status),
	}
	if t.ID == "" {
		t.ID = w.ID
	}
	if w.DueDate != nil {
		t.DueDate = *w.DueDate
	}
	if w.Category != nil {
		t.Category = *w.Category
	}
	if t.Status == "" {
		t.Status = service.StatusPending
	}
	return t
}

// taskBody is the create/update payload. All five fields are always sent so a
// cleared due date or category reaches the server as "".
type taskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
	Category    string `json:"category"`
}

func fromFields(f service.Fields) taskBody {
	b := taskBody{
		Title:       f.Title,
		Description: f.Description,
		Status:      string(f.Status),
		DueDate:     f.DueDate,
		Category:    f.Category,
	}
	if b.Status == "" {
		b.Status = string(service.StatusPending)
	}
	return b
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var wire []wireTask
	if err := c.do(ctx, http.MethodGet, tasksPath, nil, &wire); err != nil {
		return nil, err
	}
	tasks := make([]service.Task, 0, len(wire))
	for _, w := range wire {
		tasks = append(tasks, w.toTask())
	}
	return tasks, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, fields service.Fields) (service.Task, error) {
	var created wireTask
	if err := c.do(ctx, http.MethodPost, tasksPath, fromFields(fields), &created); err != nil {
		return service.Task{}, err
	}
	return created.toTask(), nil
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id string, fields service.Fields) (service.Task, error) {
	var updated wireTask
	if err := c.do(ctx, http.MethodPut, taskPath(id), fromFields(fields), &updated); err != nil {
		return service.Task{}, err
	}
	return updated.toTask(), nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// Login implements service.Authenticator.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, loginPath, body, &resp)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			// Any answer from the server is a rejection of the credentials.
			return "", fmt.Errorf("%w: %v", service.ErrInvalidCredentials, err)
		}
		return "", err
	}
	return resp.Token, nil
}

// Register implements service.Authenticator.
func (c *Client) Register(ctx context.Context, req service.RegisterRequest) error {
	body := map[string]string{"name": req.Name, "email": req.Email, "password": req.Password}
	return c.do(ctx, http.MethodPost, registerPath, body, nil)
}

func taskPath(id string) string {
	return tasksPath + "/" + url.PathEscape(id)
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error status %d", e.Code)
}

// Unwrap maps well-known status codes onto service sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return service.ErrUnauthorized
	case http.StatusNotFound:
		return service.ErrNotFound
	}
	return nil
}

// do performs one request. There is no retry.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%w: %v", service.ErrUnreachable, err)
	}
	defer resp.Body.Close()
	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode,
		"dur_ms", time.Since(start).Milliseconds())

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the server's message from an error body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	default:
		return body.Msg
	}
}
