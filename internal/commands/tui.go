package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/taskstore"
	"tasksync/internal/tui"
)

func init() {
	Register(&TuiCmd{})
}

// TuiCmd implements the interactive task list.
type TuiCmd struct{}

func (c *TuiCmd) Name() string      { return "tui" }
func (c *TuiCmd) Aliases() []string { return []string{"ui"} }
func (c *TuiCmd) Synopsis() string  { return "Browse and edit tasks interactively" }
func (c *TuiCmd) Usage() string     { return "tasksync tui" }
func (c *TuiCmd) NeedsAuth() bool   { return true }

func (c *TuiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TuiCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if !output.IsTerminal(out) {
		fmt.Fprintln(errOut, "error: tui requires a terminal")
		return exitcode.UserError
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The TUI shows notices itself, so it gets its own engine.
	notifier, notices := tui.NewNotifier()
	eng := engine.New(taskstore.New(), env.Remote, env.Session, notifier, env.Logger)

	events, err := env.Session.Watch(ctx)
	if err != nil {
		env.Logger.Warn().Err(err).Msg("session watch unavailable")
	}

	err = tui.Run(ctx, tui.Options{
		Engine:        eng,
		Session:       env.Session,
		Notices:       notices,
		SessionEvents: events,
		Theme:         output.ColorTheme(),
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	if !env.Session.Authenticated() {
		return exitcode.AuthError
	}
	return exitcode.Success
}
