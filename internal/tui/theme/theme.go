// Package theme defines color themes for the ptab terminal screens.
package theme

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color roles used by the browser and the wizards.
type Theme struct {
	Name        string
	Surface     lipgloss.Color // Selected row background
	Border      lipgloss.Color // Card and table borders
	TextDim     lipgloss.Color // Hints, disabled
	TextMuted   lipgloss.Color // Labels, metadata
	TextPrimary lipgloss.Color // Primary content text
	Accent      lipgloss.Color // Active tab, headers
	Green       lipgloss.Color // Healthy balance
	Orange      lipgloss.Color // Nearly consumed
	Red         lipgloss.Color // Overdrawn
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default theme.
var FlexokiDark = Theme{
	Name:        "flexoki-dark",
	Surface:     lipgloss.Color("#282726"),
	Border:      lipgloss.Color("#403E3C"),
	TextDim:     lipgloss.Color("#575653"),
	TextMuted:   lipgloss.Color("#878580"),
	TextPrimary: lipgloss.Color("#FFFCF0"),
	Accent:      lipgloss.Color("#3AA99F"),
	Green:       lipgloss.Color("#879A39"),
	Orange:      lipgloss.Color("#DA702C"),
	Red:         lipgloss.Color("#D14D41"),
}

// CatppuccinMocha is a soft pastel theme.
var CatppuccinMocha = Theme{
	Name:        "catppuccin-mocha",
	Surface:     lipgloss.Color("#45475A"),
	Border:      lipgloss.Color("#585B70"),
	TextDim:     lipgloss.Color("#6C7086"),
	TextMuted:   lipgloss.Color("#A6ADC8"),
	TextPrimary: lipgloss.Color("#CDD6F4"),
	Accent:      lipgloss.Color("#89B4FA"),
	Green:       lipgloss.Color("#A6E3A1"),
	Orange:      lipgloss.Color("#FAB387"),
	Red:         lipgloss.Color("#F38BA8"),
}

// Terminal uses ANSI 16 colors only.
var Terminal = Theme{
	Name:        "terminal",
	Surface:     lipgloss.Color("8"),
	Border:      lipgloss.Color("8"),
	TextDim:     lipgloss.Color("8"),
	TextMuted:   lipgloss.Color("7"),
	TextPrimary: lipgloss.Color("15"),
	Accent:      lipgloss.Color("6"),
	Green:       lipgloss.Color("2"),
	Orange:      lipgloss.Color("3"),
	Red:         lipgloss.Color("1"),
}

// All available themes.
var All = []Theme{FlexokiDark, CatppuccinMocha, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}

// TableStyles returns bubbles table styles in the theme's colors.
func (t Theme) TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Foreground(t.Accent).
		Bold(true)
	s.Cell = s.Cell.Foreground(t.TextPrimary)
	s.Selected = s.Selected.
		Foreground(t.TextPrimary).
		Background(t.Surface).
		Bold(false)
	return s
}

// FormTheme returns the huh theme used by the wizards.
func (t Theme) FormTheme() *huh.Theme {
	h := huh.ThemeBase()
	h.Focused.Title = h.Focused.Title.Foreground(t.Accent).Bold(true)
	h.Focused.Description = h.Focused.Description.Foreground(t.TextMuted)
	h.Focused.ErrorMessage = h.Focused.ErrorMessage.Foreground(t.Red)
	h.Focused.ErrorIndicator = h.Focused.ErrorIndicator.Foreground(t.Red)
	h.Focused.SelectedOption = h.Focused.SelectedOption.Foreground(t.Green)
	h.Focused.SelectSelector = h.Focused.SelectSelector.Foreground(t.Accent)
	h.Blurred.Title = h.Blurred.Title.Foreground(t.TextMuted)
	return h
}
