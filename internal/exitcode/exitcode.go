// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"tasksync/internal/engine"
	"tasksync/internal/gateway"
	"tasksync/internal/session"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, invalid input).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// FromError maps an engine or session error to an exit code.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, engine.ErrUnauthorized),
		errors.Is(err, session.ErrAuth),
		errors.Is(err, session.ErrNoSession),
		gateway.IsUnauthorized(err):
		return AuthError
	case errors.Is(err, engine.ErrValidationLocal),
		errors.Is(err, engine.ErrNotFoundLocal),
		errors.Is(err, engine.ErrNotFoundRemote),
		errors.Is(err, engine.ErrBusy),
		errors.Is(err, engine.ErrRejected),
		errors.Is(err, session.ErrValidation):
		return UserError
	default:
		return BackendError
	}
}
