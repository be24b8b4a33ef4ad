package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/ptab/internal/config"
	"github.com/theirongolddev/ptab/internal/tui"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg := loadConfig()

	fmt.Println()
	fmt.Println("  Welcome to ptab!")
	fmt.Println()

	cfg, err := tui.RunSetup(cfg)
	if errors.Is(err, tui.ErrAborted) {
		fmt.Println("  Setup abandoned, config unchanged.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `ptab setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
