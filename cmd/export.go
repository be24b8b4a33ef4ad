package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/sheet"

	"github.com/spf13/cobra"
)

var flagOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write listings to an .xlsx workbook",
}

var exportBalancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Export budget line balances",
	RunE:  runExportBalances,
}

var exportRequestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Export sub-requests with their totals",
	RunE:  runExportRequests,
}

func init() {
	exportBalancesCmd.Flags().StringVarP(&flagOut, "out", "o", "balances.xlsx", "Output file")
	exportBalancesCmd.Flags().IntVar(&flagYear, "year", 0, "Filter to budget year")
	exportBalancesCmd.Flags().StringVar(&flagProject, "project", "", "Filter to project")
	exportRequestsCmd.Flags().StringVarP(&flagOut, "out", "o", "requests.xlsx", "Output file")

	exportCmd.AddCommand(exportBalancesCmd, exportRequestsCmd)
	rootCmd.AddCommand(exportCmd)
}

// writeOut creates flagOut and hands it to write, removing the file on error.
func writeOut(write func(f *os.File) error) error {
	f, err := os.Create(flagOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", flagOut, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(flagOut)
		return err
	}
	return f.Close()
}

func runExportBalances(_ *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	rows, err := svc.Balances(context.Background(), model.BalanceFilter{Year: flagYear, Project: flagProject})
	if err != nil {
		return err
	}
	if err := writeOut(func(f *os.File) error { return sheet.WriteBalances(f, rows) }); err != nil {
		return err
	}
	fmt.Printf("  Wrote %d balances to %s\n", len(rows), flagOut)
	return nil
}

func runExportRequests(_ *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	rows, err := svc.SubRequests(context.Background())
	if err != nil {
		return err
	}
	if err := writeOut(func(f *os.File) error { return sheet.WriteRequests(f, rows) }); err != nil {
		return err
	}
	fmt.Printf("  Wrote %d sub-requests to %s\n", len(rows), flagOut)
	return nil
}
