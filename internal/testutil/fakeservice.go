// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"tasksync/internal/gateway"
	"tasksync/internal/service"
	"tasksync/internal/session"
)

// FirstServerID is the id handed out to the first task created through the
// fake.
const FirstServerID = 100

// Epoch is the CreatedAt base for seeded tasks.
var Epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Call records one remote call.
type Call struct {
	Method string
	ID     string
	Task   service.Task
}

// FakeService is an in-memory implementation of service.Service and
// session.Authenticator for testing.
type FakeService struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int
	calls  []Call
	gates  map[string]chan struct{}
	lists  []service.TaskList

	// Error injection for testing
	ListErr    error
	CreateErr  error
	ReplaceErr error
	DeleteErr  error
	AuthErr    error

	// AuthToken is returned by Authenticate.
	AuthToken string
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID:    FirstServerID,
		gates:     make(map[string]chan struct{}),
		AuthToken: "test-token",
	}
}

// AddTask seeds a task. Later calls get older CreatedAt values, so seeded
// tasks list in call order.
func (f *FakeService) AddTask(id, title string, status service.Status) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:        id,
		Title:     title,
		Status:    status,
		CreatedAt: Epoch.Add(-time.Duration(len(f.tasks)) * time.Minute),
	}
	f.tasks = append(f.tasks, t)
	return t
}

// Tasks returns the server-side records.
func (f *FakeService) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns the recorded calls.
func (f *FakeService) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Hold makes the next call for method and id block until the returned
// release func is called or the call's context ends.
func (f *FakeService) Hold(method, id string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[method+" "+id] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *FakeService) enter(ctx context.Context, c Call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	key := c.Method + " " + c.ID
	gate := f.gates[key]
	delete(f.gates, key)
	f.mu.Unlock()

	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return &gateway.Error{Kind: gateway.KindUnavailable, Method: c.Method, Path: c.ID, Err: ctx.Err()}
	}
}

// Authenticate implements session.Authenticator.
func (f *FakeService) Authenticate(ctx context.Context, mode session.Mode, creds session.Credentials) (*oauth2.Token, error) {
	if err := f.enter(ctx, Call{Method: "AUTH", ID: mode.String()}); err != nil {
		return nil, err
	}
	if f.AuthErr != nil {
		return nil, f.AuthErr
	}
	return &oauth2.Token{AccessToken: f.AuthToken, TokenType: "Bearer"}, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	if err := f.enter(ctx, Call{Method: "GET"}); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, title, description string, status service.Status) (service.Task, error) {
	draft := service.Task{Title: title, Description: description, Status: status}
	if err := f.enter(ctx, Call{Method: "POST", Task: draft}); err != nil {
		return service.Task{}, err
	}
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	draft.ID = strconv.Itoa(f.nextID)
	f.nextID++
	draft.CreatedAt = Epoch.Add(time.Duration(f.nextID) * time.Minute)
	f.tasks = append([]service.Task{draft}, f.tasks...)
	return draft, nil
}

// ReplaceTask implements service.Service.
func (f *FakeService) ReplaceTask(ctx context.Context, task service.Task) (service.Task, error) {
	if err := f.enter(ctx, Call{Method: "PUT", ID: task.ID, Task: task}); err != nil {
		return service.Task{}, err
	}
	if f.ReplaceErr != nil {
		return service.Task{}, f.ReplaceErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == task.ID {
			task.CreatedAt = t.CreatedAt
			f.tasks[i] = task
			return task, nil
		}
	}
	return service.Task{}, NotFound()
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	if err := f.enter(ctx, Call{Method: "DELETE", ID: id}); err != nil {
		return err
	}
	if f.DeleteErr != nil {
		return f.DeleteErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return NotFound()
}

// AddList registers an extra task list for ListLists.
func (f *FakeService) AddList(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, service.TaskList{ID: id, Title: title})
}

// ListLists implements service.ListLister. The default list comes first.
func (f *FakeService) ListLists(ctx context.Context) ([]service.TaskList, error) {
	if err := f.enter(ctx, Call{Method: "LISTS"}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []service.TaskList{{ID: "@default", Title: "My Tasks", IsDefault: true}}
	return append(out, f.lists...), nil
}

// Unavailable returns a transport failure as the gateway reports it.
func Unavailable() error {
	return &gateway.Error{Kind: gateway.KindUnavailable, Message: "connection refused"}
}

// Unauthorized returns a rejected-session failure.
func Unauthorized() error {
	return &gateway.Error{Kind: gateway.KindUnauthorized, Status: 401}
}

// NotFound returns a remote not-found failure.
func NotFound() error {
	return &gateway.Error{Kind: gateway.KindNotFound, Status: 404}
}

// ServerFault returns a 5xx failure.
func ServerFault() error {
	return &gateway.Error{Kind: gateway.KindServerFault, Status: 500}
}
