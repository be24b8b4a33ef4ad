// Package components provides the widgets shared by the ptab browser.
package components

import (
	"github.com/theirongolddev/ptab/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Metric is one labelled figure on the dashboard strip.
type Metric struct {
	Label string
	Value string
	Note  string
	Alert bool
}

// LayoutRow distributes totalWidth into n widths that sum to exactly totalWidth.
// First items absorb the remainder from integer division.
func LayoutRow(totalWidth, n int) []int {
	if n <= 0 {
		return nil
	}
	base := totalWidth / n
	remainder := totalWidth % n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = base
		if i < remainder {
			widths[i]++
		}
	}
	return widths
}

// MetricCard renders one metric in a rounded box of outerWidth columns.
func MetricCard(m Metric, outerWidth int) string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Width(max(outerWidth-2, 10)).
		Padding(0, 1)

	valueColor := t.TextPrimary
	if m.Alert {
		valueColor = t.Red
	}

	content := lipgloss.NewStyle().Foreground(t.TextMuted).Render(m.Label) + "\n" +
		lipgloss.NewStyle().Foreground(valueColor).Bold(true).Render(m.Value)
	if m.Note != "" {
		content += "\n" + lipgloss.NewStyle().Foreground(t.TextDim).Render(m.Note)
	}
	return cardStyle.Render(content)
}

// MetricRow renders metrics side by side across totalWidth columns. Cards
// of different heights are bottom-padded to the tallest.
func MetricRow(metrics []Metric, totalWidth int) string {
	if len(metrics) == 0 {
		return ""
	}
	widths := LayoutRow(totalWidth, len(metrics))
	cards := make([]string, len(metrics))
	height := 0
	for i, m := range metrics {
		cards[i] = MetricCard(m, widths[i])
		height = max(height, lipgloss.Height(cards[i]))
	}
	for i := range cards {
		cards[i] = lipgloss.PlaceVertical(height, lipgloss.Top, cards[i])
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}
