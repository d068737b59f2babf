package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskman/internal/exitcode"
	"taskman/internal/taskview"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "taskman rm <n>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	m := taskview.NewManager(env.Svc)
	if err := m.Load(ctx); err != nil {
		return reportError(env, errOut, err)
	}
	task, err := taskAt(m.Tasks(), num)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := m.Delete(ctx, task.ID); err != nil {
		return reportError(env, errOut, err)
	}
	env.logger().Debug("task deleted", "id", task.ID)
	return printOK(env, out)
}
