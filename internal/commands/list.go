package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskman/internal/exitcode"
	"taskman/internal/output"
	"taskman/internal/taskview"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskman` (no args) and `taskman list`.
type ListCmd struct {
	long bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "taskman list [--long]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.long, "long", false, "")
	fs.BoolVar(&c.long, "l", false, "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	view := taskview.NewListView(env.Svc)
	if err := view.Load(ctx); err != nil {
		return reportError(env, errOut, err)
	}

	tasks := view.Tasks()
	if len(tasks) == 0 {
		if !env.Cfg.Quiet {
			fmt.Fprintln(out, output.NoTasks)
		}
		return exitcode.Success
	}
	output.FormatTasks(out, tasks, c.long)
	return exitcode.Success
}
