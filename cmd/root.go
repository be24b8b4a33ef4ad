package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/theirongolddev/ptab/internal/config"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
	"github.com/theirongolddev/ptab/internal/tui/theme"
	"github.com/theirongolddev/ptab/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	flagDB    string
	flagActor int64
	flagQuiet bool
)

var rootCmd = &cobra.Command{
	Use:          "ptab",
	Short:        "Budget line balances, requests and reconciliations",
	Long:         "Track PTAB budget lines: import a budget, commit spending requests, reconcile what was actually spent.",
	RunE:         runDashboard,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database file (default from config or PTAB_DB)")
	rootCmd.PersistentFlags().Int64Var(&flagActor, "actor", 0, "Operator id recorded on changes (default from config or PTAB_ACTOR)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// loadConfig reads the config file and applies its theme.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  %v, using defaults\n", err)
	}
	theme.SetActive(cfg.Appearance.Theme)
	return cfg
}

func databasePath(cfg config.Config) string {
	if flagDB != "" {
		return flagDB
	}
	return config.DatabasePath(cfg)
}

// openService is the shared store path used by all commands. The returned
// func closes the store.
func openService() (*workflow.Service, func(), error) {
	cfg := loadConfig()

	actor := flagActor
	if actor == 0 {
		var err error
		if actor, err = config.ActorID(cfg); err != nil {
			return nil, nil, err
		}
	}
	if actor <= 0 {
		return nil, nil, fmt.Errorf("no operator id: pass --actor or run `ptab setup`")
	}

	path := databasePath(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Using %s\n", path)
	}
	return workflow.New(st, actor), func() { _ = st.Close() }, nil
}

// scope resolves year and project from flags, falling back to the import
// defaults in the config file.
func scope(year int, project string) (int, string, error) {
	cfg, _ := config.Load()
	if year == 0 {
		year = cfg.Import.DefaultYear
	}
	if project == "" {
		project = cfg.Import.DefaultProject
	}
	switch {
	case year == 0:
		return 0, "", model.Invalid("year", "pass --year or set import.default_year")
	case project == "":
		return 0, "", model.Invalid("project", "pass --project or set import.default_project")
	}
	return year, project, nil
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s id %q is not a positive integer", what, arg)
	}
	return id, nil
}

func progress(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
	}
}
