// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskman/internal/service"
)

// NoTasks is printed when the task list is empty.
const NoTasks = "no tasks"

// StatusMarker returns the checkbox shown for a status.
func StatusMarker(s service.Status) string {
	switch s {
	case service.StatusInProgress:
		return "[~]"
	case service.StatusCompleted:
		return "[x]"
	default:
		return "[ ]"
	}
}

// FormatTask formats a task line.
// Format: "{N:>4}  {MARKER} {TITLE}[  due {DATE}][  @{CATEGORY}]\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d  %s %s", num, StatusMarker(task.Status), normalizeTitle(task.Title))
	if due := DueDate(task.DueDate); due != "" {
		b.WriteString("  due ")
		b.WriteString(due)
	}
	if c := strings.TrimSpace(task.Category); c != "" {
		b.WriteString("  @")
		b.WriteString(c)
	}
	fmt.Fprintln(w, b.String())
}

// FormatTaskLong formats a task line followed by its description, indented.
func FormatTaskLong(w io.Writer, num int, task service.Task) {
	FormatTask(w, num, task)
	for _, line := range strings.Split(strings.TrimSpace(task.Description), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(w, "          %s\n", strings.TrimRight(line, "\r"))
	}
}

// FormatTasks formats tasks numbered from 1, or NoTasks when empty.
func FormatTasks(w io.Writer, tasks []service.Task, long bool) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, NoTasks)
		return
	}
	for i, t := range tasks {
		if long {
			FormatTaskLong(w, i+1, t)
		} else {
			FormatTask(w, i+1, t)
		}
	}
}

// DueDate returns the calendar-date part of a due date.
func DueDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
