package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	yes bool
}

// SetYes skips the confirmation prompt (for testing).
func (c *RmCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "tasksync rm [--yes] <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	task, code := lookupTask(ctx, env, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if !c.yes && !confirm(env.In, errOut, fmt.Sprintf("Delete %q? [y/N] ", task.Title)) {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "cancelled")
		}
		return exitcode.Success
	}

	return exitcode.FromError(env.Engine.DeleteTask(ctx, task.ID))
}

// confirm asks a yes/no question on errOut and reads the answer from in.
// Anything but y or yes, including EOF, is a no.
func confirm(in io.Reader, errOut io.Writer, prompt string) bool {
	if in == nil {
		return false
	}
	fmt.Fprint(errOut, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(errOut)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
