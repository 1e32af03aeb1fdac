package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/exitcode"
)

func init() {
	Register(&RenameCmd{})
}

// RenameCmd implements the rename command.
type RenameCmd struct{}

func (c *RenameCmd) Name() string      { return "rename" }
func (c *RenameCmd) Aliases() []string { return nil }
func (c *RenameCmd) Synopsis() string  { return "Change a task's title" }
func (c *RenameCmd) Usage() string     { return "tasksync rename <ref> <title...>" }
func (c *RenameCmd) NeedsAuth() bool   { return true }

func (c *RenameCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RenameCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 && strings.TrimSpace(strings.Join(args[1:], " ")) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	task, code := lookupTask(ctx, env, args, errOut)
	if code != exitcode.Success {
		return code
	}
	_, err := env.Engine.RenameTask(ctx, task.ID, strings.Join(args[1:], " "))
	return exitcode.FromError(err)
}
