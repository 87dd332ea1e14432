package commands

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")
	primaryColor = lipgloss.Color("#7D56F4")

	hostStyle    = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	okStyle      = lipgloss.NewStyle().Foreground(successColor)
	failedStyle  = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	addedStyle   = lipgloss.NewStyle().Foreground(successColor)
	removedStyle = lipgloss.NewStyle().Foreground(errorColor)
)

// styleDiffLine colors one line of a unified diff. Lipgloss drops the
// colors when stdout is not a terminal.
func styleDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return mutedStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return hostStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return addedStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return removedStyle.Render(line)
	}
	return line
}
