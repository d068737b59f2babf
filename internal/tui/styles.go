package tui

import (
	"github.com/charmbracelet/lipgloss"

	"taskman/internal/service"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	dragStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#3C3C3C"))
	labelStyle  = lipgloss.NewStyle().Width(12)

	focusedLabelStyle = labelStyle.Foreground(lipgloss.Color("#7D56F4")).Bold(true)

	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF5F87")).
			Padding(0, 1)

	statusStyles = map[service.Status]lipgloss.Style{
		service.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("#A8A8A8")),
		service.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")),
		service.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Strikethrough(true),
	}
)

func statusStyle(s service.Status) lipgloss.Style {
	if st, ok := statusStyles[s]; ok {
		return st
	}
	return statusStyles[service.StatusPending]
}
