package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"taskman/internal/config"
	"taskman/internal/exitcode"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in and store the session" }
func (c *LoginCmd) Usage() string     { return "taskman login [--email <email>] [--password <password>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if env.Session.LoggedIn() {
		if !env.Cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	email, password := c.email, c.password
	// The Google backend signs in through the browser.
	if env.Cfg.Backend != config.BackendGoogle {
		if email == "" {
			email = os.Getenv(config.EnvEmail)
		}
		if password == "" {
			password = os.Getenv(config.EnvPassword)
		}
		p := newPrompter(env.In, errOut)
		var err error
		if email, err = p.ask("Email", email); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		if password, err = p.secret("Password", password); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	if err := env.Cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	if _, err := env.Session.Login(ctx, email, password); err != nil {
		return reportError(env, errOut, err)
	}
	return printOK(env, out)
}
