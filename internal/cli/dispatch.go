package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"tasksync/internal/backend/googletasks"
	"tasksync/internal/backend/rest"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/gateway"
	"tasksync/internal/logging"
	"tasksync/internal/output"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/taskstore"
)

// Backend is a remote task service that can also sign users in.
type Backend interface {
	service.Service
	session.Authenticator
}

// BackendFactory creates the Backend selected by cfg.
// Used to inject the backend during dispatch.
type BackendFactory func(ctx context.Context, cfg *config.Config, sess *session.Store, logger zerolog.Logger) (Backend, error)

// NewBackend is the production BackendFactory.
func NewBackend(ctx context.Context, cfg *config.Config, sess *session.Store, logger zerolog.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendGoogleTasks:
		return googletasks.New(ctx, cfg, sess, logger)
	default:
		gw := gateway.New(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout}, sess, logger)
		return rest.New(gw), nil
	}
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
	in       io.Reader
}

// NewDispatcher creates a new dispatcher. in feeds prompts such as the
// password and delete confirmation; it may be nil.
func NewDispatcher(registry *commands.Registry, factory BackendFactory, in io.Reader) *Dispatcher {
	if factory == nil {
		factory = NewBackend
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		in:       in,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := logging.New(errOut, cfg.LogLevel, cfg.Debug)
	logger.Debug().Str("command", cmd.Name()).Str("backend", cfg.Backend).Str("dir", cfg.Dir).Msg("dispatch")

	sess := session.NewStore(cfg.SessionPath(), logger)
	if err := sess.Load(); err != nil {
		logger.Warn().Err(err).Msg("ignoring unreadable session")
	}

	if cmd.NeedsAuth() && !sess.Authenticated() {
		fmt.Fprintln(errOut, "error: not logged in (run: tasksync login)")
		return exitcode.AuthError
	}

	theme := output.ThemeFor(out)
	env := &commands.Env{
		Config:  cfg,
		Session: sess,
		In:      d.in,
		Theme:   theme,
		Logger:  logger,
	}

	backend, err := d.factory(ctx, cfg, sess, logger)
	if err != nil {
		if cmd.NeedsAuth() {
			if errors.Is(err, session.ErrAuth) {
				fmt.Fprintf(errOut, "error: auth error: %s\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: backend error: %s\n", err)
			return exitcode.BackendError
		}
		// Commands like logout and help run without a backend.
		env.BackendErr = err
	} else {
		notifier := &commands.Notifier{Out: out, ErrOut: errOut, Quiet: cfg.Quiet, Theme: theme}
		env.Auth = backend
		env.Remote = backend
		env.Engine = engine.New(taskstore.New(), backend, sess, notifier, logger)
	}

	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// flagError rewrites flag package errors into the CLI's wording.
func flagError(err error) string {
	errStr := err.Error()

	// Check for missing flag value
	if strings.HasPrefix(errStr, "flag needs an argument:") {
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		return "flag needs an argument: " + flagName
	}

	// Check for unknown flag
	if flagName, ok := strings.CutPrefix(errStr, "flag provided but not defined: "); ok {
		return "unknown flag: " + flagName
	}

	return errStr
}
