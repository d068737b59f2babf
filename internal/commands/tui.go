package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/tui"
)

func init() {
	Register(&TUICmd{})
}

// runTUI is replaced in tests.
var runTUI = tui.Run

// TUICmd implements the tui command.
type TUICmd struct{}

func (c *TUICmd) Name() string      { return "tui" }
func (c *TUICmd) Aliases() []string { return []string{"ui"} }
func (c *TUICmd) Synopsis() string  { return "Interactive task manager" }
func (c *TUICmd) Usage() string     { return "taskman tui [common flags]" }

// NeedsAuth is false: the TUI has its own login screen.
func (c *TUICmd) NeedsAuth() bool { return false }

func (c *TUICmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TUICmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if env.Connect == nil {
		fmt.Fprintln(errOut, "error: no backend configured")
		return exitcode.BackendError
	}

	err := runTUI(ctx, tui.Options{
		Session: env.Session,
		Connect: func(ctx context.Context, token string) (service.Service, error) {
			return env.Connect(ctx, token)
		},
		Log: env.logger(),
		// The browser sign-in cannot run under the full-screen UI.
		ExternalLogin: env.Cfg.Backend == config.BackendGoogle,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
