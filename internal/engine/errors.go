package engine

import (
	"errors"
	"fmt"

	"tasksync/internal/gateway"
	"tasksync/internal/taskstore"
)

var (
	// ErrValidationLocal is returned for input rejected before any state
	// change or network call, e.g. an empty title.
	ErrValidationLocal = errors.New("invalid input")

	// ErrNotFoundLocal is returned when the target is not in the local view.
	ErrNotFoundLocal = taskstore.ErrNotFoundLocal

	// ErrBusy is returned when the target already has a change in flight.
	ErrBusy = taskstore.ErrMutationPending

	// ErrNotFoundRemote is returned when the server does not know the target.
	ErrNotFoundRemote = errors.New("task not found on server")

	// ErrUnauthorized is returned when the server rejected the session. The
	// session has been cleared by the time the caller sees it.
	ErrUnauthorized = errors.New("session expired or rejected")

	// ErrRejected is returned when the server refused the change as invalid.
	ErrRejected = errors.New("rejected by server")

	// ErrUnavailable is returned for network failures and timeouts.
	ErrUnavailable = errors.New("server unreachable")

	// ErrServerFault is returned for server-side errors.
	ErrServerFault = errors.New("server error")
)

// classify maps a remote failure onto the engine's taxonomy, keeping the
// original error in the chain.
func classify(err error) error {
	kind, ok := gateway.KindOf(err)
	if !ok {
		return fmt.Errorf("%w: %w", ErrServerFault, err)
	}
	switch kind {
	case gateway.KindUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case gateway.KindNotFound:
		return fmt.Errorf("%w: %w", ErrNotFoundRemote, err)
	case gateway.KindValidation:
		return fmt.Errorf("%w: %w", ErrRejected, err)
	case gateway.KindUnavailable:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrServerFault, err)
	}
}

// reason returns the short user-facing cause of err.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "please log in again"
	case errors.Is(err, ErrNotFoundRemote):
		return "it no longer exists"
	case errors.Is(err, ErrRejected):
		return "the server rejected it"
	case errors.Is(err, ErrUnavailable):
		return "server unreachable"
	case errors.Is(err, ErrBusy):
		return "a change is still being saved"
	case errors.Is(err, ErrNotFoundLocal):
		return "no such task"
	default:
		return "server error"
	}
}
