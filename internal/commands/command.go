// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/output"
	"tasksync/internal/service"
	"tasksync/internal/session"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a session.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Env is what a command runs against. Config and Session are always set.
// Remote, Engine and Auth are nil when the backend could not be built for
// a command that does not need it.
type Env struct {
	Config  *config.Config
	Session *session.Store
	Auth    session.Authenticator
	Remote  service.Service
	Engine  *engine.Engine
	In      io.Reader
	Theme   output.Theme
	Logger  zerolog.Logger

	// BackendErr explains why Auth and Engine are nil.
	BackendErr error
}

func (e *Env) backendErr() error {
	if e.BackendErr != nil {
		return e.BackendErr
	}
	return errors.New("backend unavailable")
}

// Notifier prints engine notices: successes to out unless quiet, errors to
// errOut.
type Notifier struct {
	Out    io.Writer
	ErrOut io.Writer
	Quiet  bool
	Theme  output.Theme
}

// Notify implements engine.Notifier.
func (n *Notifier) Notify(notice engine.Notice) {
	if notice.Kind == engine.NoticeError {
		output.FormatError(n.ErrOut, n.Theme, notice.Message)
		return
	}
	if !n.Quiet {
		fmt.Fprintln(n.Out, n.Theme.Render(n.Theme.Success, notice.Message))
	}
}
