// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for remote task operations.
// Commands and the sync engine never import a backend SDK directly.
//
// Every method issues exactly one remote call and never retries.
type Service interface {
	// ListTasks returns every task owned by the current user.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns the server record, including
	// the server-assigned ID and CreatedAt.
	CreateTask(ctx context.Context, title, description string, status Status) (Task, error)

	// ReplaceTask replaces the whole remote record identified by task.ID
	// and returns the server's view of it.
	ReplaceTask(ctx context.Context, task Task) (Task, error)

	// DeleteTask deletes a task by ID.
	DeleteTask(ctx context.Context, id string) error
}

// ListLister is implemented by backends that hold several task lists.
type ListLister interface {
	ListLists(ctx context.Context) ([]TaskList, error)
}
