// Package cmd implements the ptab CLI commands.
package cmd

import (
	"fmt"
	"strconv"

	"github.com/theirongolddev/ptab/internal/cli"
	"github.com/theirongolddev/ptab/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func orUnset[T comparable](v T) string {
	var zero T
	if v == zero {
		return "not set"
	}
	return fmt.Sprint(v)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	actor, err := config.ActorID(cfg)
	actorStr := "#" + strconv.FormatInt(actor, 10)
	if err != nil {
		actorStr = err.Error()
	}

	fmt.Println("  [General]")
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Database", databasePath(cfg)},
		{"Operator", actorStr},
	}))
	fmt.Println()

	fmt.Println("  [Import]")
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Default year", orUnset(cfg.Import.DefaultYear)},
		{"Default project", orUnset(cfg.Import.DefaultProject)},
	}))
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Address", cfg.Server.Addr},
		{"Metrics", strconv.FormatBool(cfg.Server.Metrics)},
	}))
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Print(cli.RenderKeyValues([][2]string{{"Theme", cfg.Appearance.Theme}}))
	fmt.Println()

	fmt.Println("  Run `ptab setup` to reconfigure.")
	return nil
}
