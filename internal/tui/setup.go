package tui

import (
	"strconv"
	"strings"

	"github.com/theirongolddev/ptab/internal/config"
	"github.com/theirongolddev/ptab/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// RunSetup edits cfg through a form and returns the result. The caller
// saves it.
func RunSetup(cfg config.Config) (config.Config, error) {
	dbPath := cfg.General.DatabasePath
	if dbPath == "" {
		dbPath = config.DatabasePath(cfg)
	}
	actor := strconv.FormatInt(cfg.General.ActorID, 10)
	year := ""
	if cfg.Import.DefaultYear != 0 {
		year = strconv.Itoa(cfg.Import.DefaultYear)
	}
	project := cfg.Import.DefaultProject
	addr := cfg.Server.Addr
	themeName := cfg.Appearance.Theme

	themes := make([]huh.Option[string], len(theme.All))
	for i, t := range theme.All {
		themes[i] = huh.NewOption(t.Name, t.Name)
	}

	err := runForm(
		huh.NewGroup(
			huh.NewInput().Title("Database file").Value(&dbPath).Validate(required),
			huh.NewInput().Title("Operator id").Description("Recorded as created_by on every change").
				Value(&actor).Validate(positiveInt),
		),
		huh.NewGroup(
			huh.NewInput().Title("Default budget year").Description("Leave blank to always ask").
				Value(&year).Validate(optionalInt),
			huh.NewInput().Title("Default project").Value(&project),
		),
		huh.NewGroup(
			huh.NewInput().Title("HTTP listen address").Value(&addr).Validate(required),
			huh.NewSelect[string]().Title("Color theme").Options(themes...).Value(&themeName),
		),
	)
	if err != nil {
		return cfg, err
	}

	cfg.General.DatabasePath = strings.TrimSpace(dbPath)
	cfg.General.ActorID, _ = strconv.ParseInt(strings.TrimSpace(actor), 10, 64)
	cfg.Import.DefaultYear, _ = strconv.Atoi(strings.TrimSpace(year))
	cfg.Import.DefaultProject = strings.TrimSpace(project)
	cfg.Server.Addr = strings.TrimSpace(addr)
	cfg.Appearance.Theme = themeName
	theme.SetActive(themeName)
	return cfg, nil
}

func positiveInt(s string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return errPositive
	}
	return nil
}

func optionalInt(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return positiveInt(s)
}
