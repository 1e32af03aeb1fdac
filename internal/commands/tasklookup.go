package commands

import (
	"context"
	"fmt"
	"io"

	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

// lookupTask loads the list and resolves the reference in args to a task.
// On failure it has already reported the error and returns the exit code.
func lookupTask(ctx context.Context, env *Env, args []string, errOut io.Writer) (service.Task, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}

	// Refresh reports its own failure through the notifier.
	if err := env.Engine.Refresh(ctx); err != nil {
		return service.Task{}, exitcode.FromError(err)
	}

	id, err := ref.Resolve(env.Engine.Tasks(engine.FilterAll))
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}

	for _, t := range env.Engine.Tasks(engine.FilterAll) {
		if t.ID == id {
			return t, exitcode.Success
		}
	}
	fmt.Fprintf(errOut, "error: task not found: #%s\n", id)
	return service.Task{}, exitcode.UserError
}
