package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse balances, requests and reconciliations",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&flagYear, "year", 0, "Filter balances to budget year")
	tuiCmd.Flags().StringVar(&flagProject, "project", "", "Filter balances to project")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	flagQuiet = true
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	b := tui.NewBrowser(context.Background(), svc, model.BalanceFilter{Year: flagYear, Project: flagProject})
	p := tea.NewProgram(b, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
