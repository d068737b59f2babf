package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskman/internal/apperr"
	"taskman/internal/output"
	"taskman/internal/service"
	"taskman/internal/taskview"
)

// View implements tea.Model.
func (m Model) View() string {
	switch m.screen {
	case screenLogin:
		return m.viewLogin()
	case screenForm:
		return m.viewForm()
	case screenConfirm:
		return m.viewConfirm()
	default:
		return m.viewTasks()
	}
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("taskman · login"))
	b.WriteString("\n\n")
	if m.externalLogin {
		b.WriteString("Sign in from a shell with: taskman login\n\n")
		if m.loginErr != nil {
			b.WriteString(errorStyle.Render(userMessage(m.loginErr)))
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("enter continue · esc quit"))
		return b.String()
	}
	b.WriteString(m.login[0].View())
	b.WriteString("\n")
	b.WriteString(m.login[1].View())
	b.WriteString("\n\n")
	switch {
	case m.loggingIn:
		b.WriteString(dimStyle.Render("signing in…"))
	case m.loginErr != nil:
		b.WriteString(errorStyle.Render(userMessage(m.loginErr)))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab switch field · enter sign in · esc quit"))
	return b.String()
}

// viewTasks renders the header on row 0, a status line on row 1 and one task
// per row from listTop on; mouse handling relies on that layout. Once the
// terminal size is known the rows scroll inside a viewport.
func (m Model) viewTasks() string {
	var b strings.Builder
	tasks := m.mgr.Tasks()
	b.WriteString(titleStyle.Render("taskman"))
	if sess, ok := m.sess.Current(); ok && sess.Email != "" {
		b.WriteString(" " + dimStyle.Render(sess.Email))
	}
	if h := m.listHeight(); h > 0 && len(tasks) > h {
		b.WriteString(" " + dimStyle.Render(fmt.Sprintf("%d-%d/%d", m.offset+1, m.offset+h, len(tasks))))
	}
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("loading…"))
	case m.mgr.Err() != nil:
		b.WriteString(errorStyle.Render(userMessage(m.mgr.Err())))
	case m.mgr.Busy():
		b.WriteString(dimStyle.Render("saving…"))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")

	switch {
	case len(tasks) == 0 && !m.loading:
		b.WriteString(dimStyle.Render(output.NoTasks))
		b.WriteString("\n")
	case m.listHeight() > 0:
		lines := make([]string, len(tasks))
		for i, t := range tasks {
			lines[i] = m.renderTask(i, t)
		}
		b.WriteString(m.listViewport(lines))
		b.WriteString("\n")
	default:
		for i, t := range tasks {
			b.WriteString(m.renderTask(i, t))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderTask(i int, t service.Task) string {
	pointer := "  "
	if i == m.cursor {
		pointer = cursorStyle.Render("> ")
	}
	line := fmt.Sprintf("%s %s", output.StatusMarker(t.Status), t.Title)
	line = statusStyle(t.Status).Render(line)
	if due := output.DueDate(t.DueDate); due != "" {
		line += dimStyle.Render("  due " + due)
	}
	if t.Category != "" {
		line += dimStyle.Render("  @" + t.Category)
	}
	if m.drag.active && i == m.drag.row {
		line = dragStyle.Render(line)
	}
	return pointer + line
}

func (m Model) viewForm() string {
	var b strings.Builder
	heading := "new task"
	if t, ok := m.mgr.Editing(); ok {
		heading = "edit: " + t.Title
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")

	labels := []string{"Title", "Description", "Due date", "Category"}
	for i, in := range m.inputs {
		b.WriteString(m.label(i, labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	b.WriteString(m.label(numInputs, "Status"))
	var opts []string
	for _, s := range service.Statuses {
		if s == m.status {
			opts = append(opts, cursorStyle.Render("["+s.Label()+"]"))
		} else {
			opts = append(opts, dimStyle.Render(" "+s.Label()+" "))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, opts...))
	b.WriteString("\n\n")

	switch {
	case m.mgr.Busy():
		b.WriteString(dimStyle.Render("saving…"))
	case m.formErr != nil:
		b.WriteString(errorStyle.Render(userMessage(m.formErr)))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab next field · ←/→ status · enter save · esc cancel"))
	return b.String()
}

func (m Model) label(i int, text string) string {
	if i == m.formFocus {
		return focusedLabelStyle.Render(text)
	}
	return labelStyle.Render(text)
}

func (m Model) viewConfirm() string {
	title := m.confirmID
	for _, t := range m.mgr.Tasks() {
		if t.ID == m.confirmID {
			title = t.Title
			break
		}
	}
	return m.viewTasks() + "\n\n" + confirmStyle.Render(fmt.Sprintf("Delete %q? (y/n)", title))
}

// userMessage returns the static message for classified failures and the
// validation text otherwise.
func userMessage(err error) string {
	var aerr *apperr.Error
	if errors.As(err, &aerr) {
		return aerr.Kind.Message()
	}
	switch {
	case errors.Is(err, taskview.ErrTitleRequired):
		return "Title is required."
	case errors.Is(err, taskview.ErrDescriptionRequired):
		return "Description is required."
	case errors.Is(err, taskview.ErrInvalidDueDate):
		return "Due date must be YYYY-MM-DD."
	}
	return err.Error()
}
