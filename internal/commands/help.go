package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskman/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskman help [command]" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		cmd, ok := DefaultRegistry.Find(args[0])
		if !ok {
			fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
			return exitcode.UserError
		}
		fmt.Fprintf(out, "Usage:\n  %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			fmt.Fprintf(out, "Aliases: %v\n", aliases)
		}
		return exitcode.Success
	}

	fmt.Fprint(out, "Usage:\n  taskman [command] [common flags] [args]\n\nCommands:\n")
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(out, "  %-10s %s\n", cmd.Name(), cmd.Synopsis())
	}
	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

const helpFooter = `
With no command, taskman lists tasks.
<n> is the task number shown by list.
<status> is one of: pending, in_progress, completed.

Common flags:
  --config <dir>     Override config directory
  --api <url>        Task service base URL (default http://localhost:5000)
  --backend <name>   rest or google
  --quiet            Suppress informational output
  --debug            Print debug logs to stderr

Run 'taskman help <command>' for command usage.
`
