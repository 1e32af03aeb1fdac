// Package googletasks implements service.Service on one Google Tasks list.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasksync/internal/config"
	"tasksync/internal/gateway"
	"tasksync/internal/service"
	"tasksync/internal/session"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks fetched per request.
	PageSize = 100

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

// Client implements service.Service and session.Authenticator using the
// Google Tasks API.
type Client struct {
	svc     *tasks.Service
	listID  string
	timeout time.Duration
	oauth   *oauth2.Config
	logger  zerolog.Logger
}

// New creates a client for cfg.GoogleList. Requests are authorized with the
// token held by sess, refreshed through the OAuth client in
// oauth_client.json.
func New(ctx context.Context, cfg *config.Config, sess *session.Store, logger zerolog.Logger) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found in %s", session.ErrAuth, config.OAuthClientFile, cfg.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.OAuthClientFile, err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope, "openid", "email")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", session.ErrAuth, config.OAuthClientFile, err)
	}

	logger = logger.With().Str("component", "googletasks").Logger()
	src := &sessionTokenSource{ctx: ctx, conf: oauthConfig, sess: sess, logger: logger}
	httpClient := oauth2.NewClient(ctx, src)

	c, err := NewWithHTTPClient(ctx, httpClient, cfg.GoogleList, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	c.oauth = oauthConfig
	c.logger = logger
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if listID == "" {
		listID = DefaultListID
	}
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &Client{svc: svc, listID: listID, timeout: timeout, logger: zerolog.Nop()}, nil
}

// ListTasks implements service.Service. Completed and hidden tasks are
// included; deleted ones are not.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []service.Task
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, fromAPI(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(http.MethodGet, c.tasksPath(""), err)
	}
	return result, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, title, description string, status service.Status) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(c.listID, toAPI(service.Task{
		Title:       title,
		Description: description,
		Status:      status,
	})).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(http.MethodPost, c.tasksPath(""), err)
	}
	return fromAPI(created), nil
}

// ReplaceTask implements service.Service with a full update, so fields
// not carried by service.Task are cleared on the server.
func (c *Client) ReplaceTask(ctx context.Context, task service.Task) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	updated, err := c.svc.Tasks.Update(c.listID, task.ID, toAPI(task)).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(http.MethodPut, c.tasksPath(task.ID), err)
	}
	return fromAPI(updated), nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return wrapError(http.MethodDelete, c.tasksPath(id), err)
	}
	return nil
}

// ListLists returns all task lists in API order, the default one with ID
// DefaultListID.
func (c *Client) ListLists(ctx context.Context) ([]service.TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// First, get the default list to know its real ID
	defaultList, err := c.svc.Tasklists.Get(DefaultListID).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(http.MethodGet, "lists/"+DefaultListID, err)
	}

	var result []service.TaskList
	err = c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			isDefault := list.Id == defaultList.Id
			id := list.Id
			if isDefault {
				id = DefaultListID // Normalize to @default
			}
			result = append(result, service.TaskList{
				ID:        id,
				Title:     list.Title,
				IsDefault: isDefault,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(http.MethodGet, "lists", err)
	}
	return result, nil
}

func (c *Client) tasksPath(id string) string {
	p := "lists/" + c.listID + "/tasks"
	if id != "" {
		p += "/" + id
	}
	return p
}

func fromAPI(t *tasks.Task) service.Task {
	out := service.Task{
		ID:          t.Id,
		Title:       t.Title,
		Description: t.Notes,
		Status:      service.StatusPending,
	}
	if t.Status == statusCompleted {
		out.Status = service.StatusCompleted
	}
	// The API has no creation time; the last update is the closest it offers.
	if ts, err := time.Parse(time.RFC3339, t.Updated); err == nil {
		out.CreatedAt = ts
	}
	return out
}

func toAPI(t service.Task) *tasks.Task {
	out := &tasks.Task{
		Id:     t.ID,
		Title:  t.Title,
		Notes:  t.Description,
		Status: statusNeedsAction,
	}
	if t.Status == service.StatusCompleted {
		out.Status = statusCompleted
	}
	return out
}

// wrapError classifies API errors into gateway kinds.
func wrapError(method, path string, err error) error {
	if err == nil {
		return nil
	}

	gerr := &gateway.Error{Method: method, Path: path, Err: err}

	var apiErr *googleapi.Error
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &apiErr):
		gerr.Kind = gateway.ClassifyStatus(apiErr.Code)
		gerr.Status = apiErr.Code
		gerr.Message = apiErr.Message
	case errors.Is(err, session.ErrNoSession):
		gerr.Kind = gateway.KindUnauthorized
		gerr.Message = "not logged in"
	case errors.As(err, &retrieveErr):
		// The refresh token was revoked or expired.
		gerr.Kind = gateway.KindUnauthorized
		gerr.Message = "token expired or revoked"
	default:
		gerr.Kind = gateway.KindUnavailable
	}
	return gerr
}

// sessionTokenSource reads the token from the session store at call time
// and stores refreshed tokens back.
type sessionTokenSource struct {
	ctx    context.Context
	conf   *oauth2.Config
	sess   *session.Store
	logger zerolog.Logger
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.sess.Token()
	if err != nil {
		return nil, err
	}
	fresh, err := s.conf.TokenSource(s.ctx, tok).Token()
	if err != nil {
		return nil, err
	}
	if fresh.AccessToken != tok.AccessToken {
		cur, _ := s.sess.Current()
		if _, err := s.sess.Establish(fresh, cur.Identity); err != nil {
			s.logger.Warn().Err(err).Msg("failed to store refreshed token")
		} else {
			s.logger.Debug().Msg("token refreshed")
		}
	}
	return fresh, nil
}
