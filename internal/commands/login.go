package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/session"
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

// SetCredentials sets the flag values (for testing).
func (c *LoginCmd) SetCredentials(email, password string) {
	c.email, c.password = email, password
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in and store the session" }
func (c *LoginCmd) Usage() string {
	return "tasksync login --email <email> [--password <password>]"
}
func (c *LoginCmd) NeedsAuth() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	registerCredentialFlags(fs, &c.email, &c.password)
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runAuth(ctx, env, session.ModeLogin, c.email, c.password, out, errOut)
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	email    string
	password string
}

// SetCredentials sets the flag values (for testing).
func (c *RegisterCmd) SetCredentials(email, password string) {
	c.email, c.password = email, password
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string {
	return "tasksync register --email <email> [--password <password>]"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	registerCredentialFlags(fs, &c.email, &c.password)
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runAuth(ctx, env, session.ModeRegister, c.email, c.password, out, errOut)
}

func registerCredentialFlags(fs *flag.FlagSet, email, password *string) {
	fs.StringVar(email, "email", "", "")
	fs.StringVar(email, "e", "", "")
	fs.StringVar(password, "password", "", "")
	fs.StringVar(password, "p", "", "")
}

// runAuth is the shared implementation for login and register.
func runAuth(ctx context.Context, env *Env, mode session.Mode, email, password string, out, errOut io.Writer) int {
	if env.Auth == nil {
		fmt.Fprintf(errOut, "error: %v\n", env.backendErr())
		return exitcode.AuthError
	}

	var (
		sess session.Session
		err  error
	)
	if env.Config.Backend == config.BackendGoogleTasks {
		if mode == session.ModeRegister {
			fmt.Fprintln(errOut, "error: register is not supported by the googletasks backend")
			return exitcode.UserError
		}
		if err := env.Config.EnsureDir(); err != nil {
			fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
			return exitcode.AuthError
		}
		sess, err = env.Session.Adopt(ctx, env.Auth)
	} else {
		if strings.TrimSpace(email) == "" {
			fmt.Fprintln(errOut, "error: --email required")
			return exitcode.UserError
		}
		if password == "" {
			password = readPassword(env.In, errOut)
		}
		if err := env.Config.EnsureDir(); err != nil {
			fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
			return exitcode.AuthError
		}
		creds := session.Credentials{Email: email, Password: password}
		if mode == session.ModeRegister {
			sess, err = env.Session.Register(ctx, env.Auth, creds)
		} else {
			sess, err = env.Session.Login(ctx, env.Auth, creds)
		}
	}

	if err != nil {
		switch code := exitcode.FromError(err); code {
		case exitcode.UserError:
			fmt.Fprintf(errOut, "error: %v\n", err)
			return code
		case exitcode.AuthError:
			fmt.Fprintf(errOut, "error: auth error: %v\n", err)
			return code
		default:
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return code
		}
	}

	if !env.Config.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", sess.Identity.Email)
	}
	return exitcode.Success
}

// readPassword takes the password from the environment, else one line of
// input.
func readPassword(in io.Reader, errOut io.Writer) string {
	if p := os.Getenv(config.EnvPassword); p != "" {
		return p
	}
	if in == nil {
		return ""
	}
	fmt.Fprint(errOut, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return strings.TrimRight(line, "\r\n")
}
