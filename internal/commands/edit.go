package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/taskview"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only flags given on the command line
// change; everything else keeps the task's current value.
type EditCmd struct {
	title    optString
	desc     optString
	due      optString
	category optString
	status   optString
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Update a task" }
func (c *EditCmd) Usage() string {
	return "taskman edit [--title <text>] [--desc <text>] [--due <YYYY-MM-DD>] [--category <name>] [--status <status>] <n>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.desc, "desc", "")
	fs.Var(&c.desc, "d", "")
	fs.Var(&c.due, "due", "")
	fs.Var(&c.category, "category", "")
	fs.Var(&c.category, "c", "")
	fs.Var(&c.status, "status", "")
	fs.Var(&c.status, "s", "")
}

func (c *EditCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	var status service.Status
	if c.status.set {
		if status, err = service.ParseStatus(c.status.val); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}
	if c.due.set {
		if err := taskview.ValidateDue(c.due.val); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	return updateTask(ctx, env, num, func(f *service.Fields) {
		if c.title.set {
			f.Title = c.title.val
		}
		if c.desc.set {
			f.Description = c.desc.val
		}
		if c.due.set {
			f.DueDate = c.due.val
		}
		if c.category.set {
			f.Category = strings.TrimSpace(c.category.val)
		}
		if c.status.set {
			f.Status = status
		}
	}, out, errOut)
}

// updateTask loads the tasks, puts task num into edit mode, applies change and
// submits the update.
func updateTask(ctx context.Context, env *Env, num int, change func(*service.Fields), out, errOut io.Writer) int {
	m := taskview.NewManager(env.Svc)
	if err := m.Load(ctx); err != nil {
		return reportError(env, errOut, err)
	}
	task, err := taskAt(m.Tasks(), num)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	m.Edit(task)
	fields := m.Fields()
	change(&fields)
	m.SetFields(fields)

	updated, err := m.Submit(ctx)
	if err != nil {
		return reportSubmitError(env, errOut, err)
	}
	env.logger().Debug("task updated", "id", updated.ID, "status", string(updated.Status))
	return printOK(env, out)
}
