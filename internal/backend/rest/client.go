// Package rest implements service.Service and session.Authenticator against
// the JSON task API, sending every call through the request gateway.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"tasksync/internal/gateway"
	"tasksync/internal/service"
	"tasksync/internal/session"
)

// API paths, relative to the configured base URL.
const (
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathTodos    = "/todos"
)

// Sender is the subset of the gateway used here.
type Sender interface {
	Send(ctx context.Context, method, path string, body, out any) error
}

// Client implements service.Service over a Sender.
type Client struct {
	gw Sender
}

// New creates a REST client.
func New(gw Sender) *Client {
	return &Client{gw: gw}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate implements session.Authenticator.
func (c *Client) Authenticate(ctx context.Context, mode session.Mode, creds session.Credentials) (*oauth2.Token, error) {
	path := pathLogin
	if mode == session.ModeRegister {
		path = pathRegister
	}

	var resp authResponse
	err := c.gw.Send(ctx, http.MethodPost, path, authRequest{Email: creds.Email, Password: creds.Password}, &resp)
	if err != nil {
		if kind, ok := gateway.KindOf(err); ok && (kind == gateway.KindUnauthorized || kind == gateway.KindValidation) {
			return nil, fmt.Errorf("%w: %w", session.ErrAuth, err)
		}
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: server returned no token", session.ErrAuth)
	}
	return &oauth2.Token{AccessToken: resp.Token, TokenType: "Bearer"}, nil
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var todos []todoJSON
	if err := c.gw.Send(ctx, http.MethodGet, pathTodos, nil, &todos); err != nil {
		return nil, err
	}
	result := make([]service.Task, 0, len(todos))
	for _, td := range todos {
		t, err := td.task()
		if err != nil {
			return nil, malformed(http.MethodGet, pathTodos, err)
		}
		result = append(result, t)
	}
	return result, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, title, description string, status service.Status) (service.Task, error) {
	body := todoJSON{Title: title, Description: description, Status: string(status)}
	var created todoJSON
	if err := c.gw.Send(ctx, http.MethodPost, pathTodos, body, &created); err != nil {
		return service.Task{}, err
	}
	t, err := created.task()
	if err != nil {
		return service.Task{}, malformed(http.MethodPost, pathTodos, err)
	}
	return t, nil
}

// ReplaceTask implements service.Service. The whole known record is sent.
func (c *Client) ReplaceTask(ctx context.Context, task service.Task) (service.Task, error) {
	path := taskPath(task.ID)
	var updated todoJSON
	if err := c.gw.Send(ctx, http.MethodPut, path, fromTask(task), &updated); err != nil {
		return service.Task{}, err
	}
	t, err := updated.task()
	if err != nil {
		return service.Task{}, malformed(http.MethodPut, path, err)
	}
	return t, nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.gw.Send(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id string) string {
	return pathTodos + "/" + url.PathEscape(id)
}

func malformed(method, path string, err error) error {
	return &gateway.Error{Kind: gateway.KindServerFault, Method: method, Path: path, Err: fmt.Errorf("malformed task: %w", err)}
}
