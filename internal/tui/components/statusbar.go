package components

import (
	"strings"

	"github.com/theirongolddev/ptab/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar with key hints on the left
// and a status message on the right. An error message is drawn in red.
func RenderStatusBar(width int, msg string, isErr bool) string {
	t := theme.Active

	left := lipgloss.NewStyle().Foreground(t.TextMuted).Render(" [tab]view  [g]reload  [q]uit")
	rightStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	if isErr {
		rightStyle = rightStyle.Foreground(t.Red)
	}
	right := rightStyle.Render(msg + " ")

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + strings.Repeat(" ", padding) + right
}
