package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tasksync` (no args) and `tasksync list`.
type ListCmd struct {
	status string
}

// SetStatus sets the status filter (for testing).
func (c *ListCmd) SetStatus(status string) {
	c.status = status
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "tasksync list [--status all|pending|completed]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "all", "")
	fs.StringVar(&c.status, "s", "all", "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	filter, err := engine.ParseFilter(c.status)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if err := env.Engine.Refresh(ctx); err != nil {
		return exitcode.FromError(err)
	}

	// Numbers are positions in the unfiltered list so that refs stay valid
	// whatever filter was used to find them.
	shown := 0
	for i, task := range env.Engine.Tasks(engine.FilterAll) {
		if !filter.Match(task) {
			continue
		}
		output.FormatTask(out, env.Theme, i+1, task)
		shown++
	}

	if env.Config.Quiet {
		return exitcode.Success
	}
	if shown == 0 {
		fmt.Fprintln(out, "no tasks found")
	}
	pending, completed := env.Engine.Counts()
	output.FormatCounts(out, pending, completed)
	return exitcode.Success
}
