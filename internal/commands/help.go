package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                       List all tasks
  tasksync list [common flags] [--status all|pending|completed]
  tasksync add [common flags] <title...>
  tasksync create [common flags] <title...>
  tasksync toggle [common flags] <ref>
  tasksync done [common flags] <ref>
  tasksync rename [common flags] <ref> <title...>
  tasksync rm [common flags] [--yes] <ref>
  tasksync lists [common flags]
  tasksync tui [common flags]
  tasksync login [common flags] --email <email> [--password <password>]
  tasksync register [common flags] --email <email> [--password <password>]
  tasksync logout [common flags]
  tasksync whoami [common flags]
  tasksync help
  tasksync version

A <ref> is the number shown by list, or #<id>.
The password is read from TASKSYNC_PASSWORD or stdin when not given.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
