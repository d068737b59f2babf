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
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	desc     string
	due      string
	category string
	status   string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskman add [--desc <text>] [--due <YYYY-MM-DD>] [--category <name>] [--status <status>] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.desc, "d", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.status, "s", "", "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	status, err := service.ParseStatus(c.status)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if err := taskview.ValidateDue(c.due); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	// A one-line add uses the title as its description.
	desc := c.desc
	if strings.TrimSpace(desc) == "" {
		desc = title
	}

	form := taskview.NewForm(env.Svc)
	form.SetFields(service.Fields{
		Title:       title,
		Description: desc,
		Status:      status,
		DueDate:     c.due,
		Category:    strings.TrimSpace(c.category),
	})
	task, err := form.Submit(ctx)
	if err != nil {
		return reportSubmitError(env, errOut, err)
	}
	env.logger().Debug("task created", "id", task.ID)
	return printOK(env, out)
}
