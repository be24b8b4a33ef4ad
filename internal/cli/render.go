package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	okStyle = lipgloss.NewStyle().
		Foreground(ColorGreen)

	negativeStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// LeftCols is how many leading columns are left-aligned; the rest are
	// right-aligned. Zero means one.
	LeftCols int
	// Flagged marks rows drawn in the negative color, e.g. overdrawn lines.
	Flagged map[int]bool
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. A row holding
// the single cell "---" draws a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 {
		numCols = len(t.Rows[0])
	}
	left := t.LeftCols
	if left == 0 {
		left = 1
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	rule := func(l, mid, r string) string {
		parts := make([]string, numCols)
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return dimStyle.Render(l+strings.Join(parts, mid)+r) + "\n"
	}
	line := func(cells []string, style func(col int) lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i < left {
				cell = " " + cell + pad + " "
			} else {
				cell = " " + pad + cell + " "
			}
			b.WriteString(style(i).Render(cell))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
		return b.String()
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, func(int) lipgloss.Style { return headerStyle }))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for r, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}
		style := valueStyle
		if t.Flagged[r] {
			style = negativeStyle
		}
		b.WriteString(line(row, func(int) lipgloss.Style { return style }))
	}
	b.WriteString(rule("╰", "┴", "╯"))

	return b.String()
}

// RenderUsageBar renders how much of a budget is consumed.
func RenderUsageBar(used, total int64, width int) string {
	if total <= 0 {
		return mutedStyle.Render(strings.Repeat("░", width))
	}

	pct := float64(used) / float64(total)
	filled := int(pct * float64(width))
	filled = max(0, min(filled, width))

	style := okStyle
	switch {
	case pct > 1:
		style = negativeStyle
	case pct > 0.85:
		style = warnStyle
	}
	bar := style.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %s", bar, FormatPercent(used, total))
}

// RenderAmount renders an amount, red when negative.
func RenderAmount(n int64) string {
	if n < 0 {
		return negativeStyle.Render(FormatAmount(n))
	}
	return FormatAmount(n)
}

// RenderKeyValues renders aligned "key  value" lines.
func RenderKeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "  %s  %s\n", mutedStyle.Render(fmt.Sprintf("%-*s", width, p[0])), valueStyle.Render(p[1]))
	}
	return b.String()
}

// RenderWarning renders a one-line warning.
func RenderWarning(msg string) string {
	return warnStyle.Render("! " + msg)
}
