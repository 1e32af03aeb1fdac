package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/service"
)

func init() {
	Register(&ListsCmd{})
}

// ListsCmd implements the lists command. Only backends with several task
// lists support it; the output names the IDs usable as google_list.
type ListsCmd struct{}

func (c *ListsCmd) Name() string      { return "lists" }
func (c *ListsCmd) Aliases() []string { return nil }
func (c *ListsCmd) Synopsis() string  { return "Print the backend's task lists" }
func (c *ListsCmd) Usage() string     { return "tasksync lists [common flags]" }
func (c *ListsCmd) NeedsAuth() bool   { return true }

func (c *ListsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	lister, ok := env.Auth.(service.ListLister)
	if !ok {
		fmt.Fprintf(errOut, "error: backend %s has a single task list\n", env.Config.Backend)
		return exitcode.UserError
	}

	lists, err := lister.ListLists(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.FromError(err)
	}

	for _, list := range lists {
		output.FormatListName(out, list, list.ID == env.Config.GoogleList)
	}

	return exitcode.Success
}
