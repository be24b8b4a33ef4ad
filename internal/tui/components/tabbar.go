package components

import (
	"strings"

	"github.com/theirongolddev/ptab/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single view in the tab bar.
type Tab struct {
	Name string
	Key  rune // shortcut, always the first letter of Name lowercased
}

// Tabs defines the browser views in display order.
var Tabs = []Tab{
	{Name: "Balances", Key: 'b'},
	{Name: "Requests", Key: 'r'},
	{Name: "Reconciliations", Key: 'c'},
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	dimKeyStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts[i] = activeStyle.Render(tab.Name)
			continue
		}
		parts[i] = inactiveStyle.Render(tab.Name) +
			dimKeyStyle.Render("[") + keyStyle.Render(string(tab.Key)) + dimKeyStyle.Render("]")
	}
	return " " + strings.Join(parts, "   ")
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
