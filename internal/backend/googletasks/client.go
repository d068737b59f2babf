// Package googletasks implements service.Service on top of the Google Tasks API.
//
// Google Tasks has no categories; a task's category is the title of the task
// list holding it, with the default list meaning "no category". Statuses other
// than completed are stored as needsAction.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"taskman/internal/config"
	"taskman/internal/logging"
	"taskman/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of items requested per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 10 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"

	// idSep joins list and task IDs into one service.Task ID.
	idSep = "/"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc *tasks.Service
	log *slog.Logger
}

// New creates a Google Tasks client from a session token, which is the JSON
// encoding of an oauth2.Token. Requires oauth_client.json for refreshes.
func New(ctx context.Context, cfg *config.Config, token string, log *slog.Logger) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(token), &tok); err != nil {
		return nil, fmt.Errorf("invalid session token (run: taskman login): %w", err)
	}

	// Create token source that auto-refreshes
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &tok))

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc, log: logging.OrDiscard(log)}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, log: logging.Discard()}, nil
}

type taskList struct {
	id        string
	title     string
	isDefault bool
}

// lists returns all task lists in API order; the default list has ID @default.
func (c *Client) lists(ctx context.Context) ([]taskList, error) {
	defaultList, err := c.svc.Tasklists.Get(DefaultListID).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}

	var result []taskList
	err = c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, l := range resp.Items {
			isDefault := l.Id == defaultList.Id
			id := l.Id
			if isDefault {
				id = DefaultListID // Normalize to @default
			}
			result = append(result, taskList{id: id, title: l.Title, isDefault: isDefault})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// ListTasks implements service.Service. Tasks of the default list come first,
// then each named list in API order.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	lists, err := c.lists(ctx)
	if err != nil {
		return nil, err
	}
	// Default list first
	for i, l := range lists {
		if l.isDefault && i != 0 {
			lists[0], lists[i] = lists[i], lists[0]
			break
		}
	}

	var result []service.Task
	for _, l := range lists {
		err := c.svc.Tasks.List(l.id).
			MaxResults(PageSize).
			ShowCompleted(true).
			ShowHidden(true).
			Pages(ctx, func(resp *tasks.Tasks) error {
				for _, t := range resp.Items {
					result = append(result, toTask(l, t))
				}
				return nil
			})
		if err != nil {
			return nil, wrapError(err)
		}
	}
	c.log.Debug("listed google tasks", "lists", len(lists), "tasks", len(result))
	return result, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, fields service.Fields) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	list, err := c.listForCategory(ctx, fields.Category)
	if err != nil {
		return service.Task{}, err
	}
	gt, err := toGoogle(fields)
	if err != nil {
		return service.Task{}, err
	}
	created, err := c.svc.Tasks.Insert(list.id, gt).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return toTask(list, created), nil
}

// UpdateTask implements service.Service. Changing the category moves the task
// to another list, which gives it a new ID.
func (c *Client) UpdateTask(ctx context.Context, id string, fields service.Fields) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	listID, taskID, err := splitID(id)
	if err != nil {
		return service.Task{}, err
	}
	list, err := c.listForCategory(ctx, fields.Category)
	if err != nil {
		return service.Task{}, err
	}
	gt, err := toGoogle(fields)
	if err != nil {
		return service.Task{}, err
	}

	if list.id != listID {
		created, err := c.svc.Tasks.Insert(list.id, gt).Context(ctx).Do()
		if err != nil {
			return service.Task{}, wrapError(err)
		}
		if err := c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
			return service.Task{}, wrapError(err)
		}
		return toTask(list, created), nil
	}

	if gt.Due == "" {
		gt.NullFields = append(gt.NullFields, "Due")
	}
	if gt.Status != statusCompleted {
		gt.NullFields = append(gt.NullFields, "Completed")
	}
	patched, err := c.svc.Tasks.Patch(listID, taskID, gt).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return toTask(list, patched), nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	listID, taskID, err := splitID(id)
	if err != nil {
		return err
	}
	if err := c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// listForCategory finds the list named category (case-insensitive, trimmed),
// creating it if needed. An empty category is the default list.
func (c *Client) listForCategory(ctx context.Context, category string) (taskList, error) {
	name := strings.TrimSpace(category)
	if name == "" {
		return taskList{id: DefaultListID, isDefault: true}, nil
	}
	lists, err := c.lists(ctx)
	if err != nil {
		return taskList{}, err
	}

	var matches []taskList
	for _, l := range lists {
		if strings.EqualFold(strings.TrimSpace(l.title), name) {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		created, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: name}).Context(ctx).Do()
		if err != nil {
			return taskList{}, wrapError(err)
		}
		return taskList{id: created.Id, title: created.Title}, nil
	case 1:
		return matches[0], nil
	default:
		return taskList{}, fmt.Errorf("ambiguous list name: %s", name)
	}
}

func toTask(l taskList, t *tasks.Task) service.Task {
	task := service.Task{
		ID:          l.id + idSep + t.Id,
		Title:       t.Title,
		Description: t.Notes,
		Status:      service.StatusPending,
		DueDate:     t.Due,
	}
	if t.Status == statusCompleted {
		task.Status = service.StatusCompleted
	}
	if !l.isDefault {
		task.Category = l.title
	}
	return task
}

func toGoogle(f service.Fields) (*tasks.Task, error) {
	gt := &tasks.Task{
		Title:  f.Title,
		Notes:  f.Description,
		Status: statusNeedsAction,
	}
	if f.Status == service.StatusCompleted {
		gt.Status = statusCompleted
	}
	if f.DueDate != "" {
		due, err := toDue(f.DueDate)
		if err != nil {
			return nil, err
		}
		gt.Due = due
	}
	return gt, nil
}

// toDue converts a YYYY-MM-DD (or longer timestamp) date into the RFC 3339
// midnight timestamp the API expects.
func toDue(s string) (string, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("invalid due date: %s", s)
	}
	return d.UTC().Format("2006-01-02T15:04:05.000Z"), nil
}

func splitID(id string) (listID, taskID string, err error) {
	i := strings.LastIndex(id, idSep)
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("%w: malformed task id %q", service.ErrNotFound, id)
	}
	return id[:i], id[i+1:], nil
}

// wrapError maps API errors onto service sentinels.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: token expired or revoked (run: taskman login)", service.ErrUnauthorized)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", service.ErrNotFound, gerr.Message)
		}
		return err
	}

	var uerr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &uerr) {
		return fmt.Errorf("%w: %v", service.ErrUnreachable, err)
	}
	return err
}
