package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"taskman/internal/exitcode"
	"taskman/internal/service"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	name     string
	email    string
	password string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "taskman register [--name <name>] [--email <email>] [--password <password>]"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	p := newPrompter(env.In, errOut)
	req := service.RegisterRequest{}
	var err error
	if req.Name, err = p.ask("Name", c.name); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if req.Email, err = p.ask("Email", c.email); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if req.Password, err = p.secret("Password", c.password); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := env.Session.Register(ctx, req); err != nil {
		if errors.Is(err, service.ErrUnsupported) {
			fmt.Fprintf(errOut, "error: register is not supported by the %s backend\n", env.Cfg.Backend)
			return exitcode.UserError
		}
		return reportError(env, errOut, err)
	}
	if !env.Cfg.Quiet {
		fmt.Fprintln(out, "ok (run: taskman login)")
	}
	return exitcode.Success
}
