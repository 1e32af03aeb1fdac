package commands

import (
	"context"
	"flag"
	"io"

	"tasksync/internal/exitcode"
)

func init() {
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command. Pending tasks become completed
// and completed tasks pending again.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string  { return "Toggle a task between pending and completed" }
func (c *ToggleCmd) Usage() string     { return "tasksync toggle <ref>" }
func (c *ToggleCmd) NeedsAuth() bool   { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ToggleCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	task, code := lookupTask(ctx, env, args, errOut)
	if code != exitcode.Success {
		return code
	}
	_, err := env.Engine.ToggleStatus(ctx, task.ID)
	return exitcode.FromError(err)
}
