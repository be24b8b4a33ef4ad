package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/ptab/internal/cli"

	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Budget totals and consumption per project",
	RunE:  runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(_ *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	d, err := svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	if d.TotalBudget == 0 && len(d.ByProject) == 0 {
		fmt.Println("\n  No active budget lines.")
		fmt.Println("  Import one with `ptab budget import FILE --year YYYY --project NAME`.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("PTAB BUDGET"))
	fmt.Println()

	rows := [][]string{
		{"Budget", cli.FormatAmount(d.TotalBudget)},
		{"Committed", cli.FormatAmount(d.TotalCommitted)},
		{"Regularised", cli.FormatAmount(d.TotalRegularised)},
		{"---"},
		{"Remaining", cli.RenderAmount(d.TotalRemaining)},
		{"Consumed", cli.RenderUsageBar(d.TotalBudget-d.TotalRemaining, d.TotalBudget, 24)},
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if len(d.ByProject) > 0 {
		rows = rows[:0]
		for _, p := range d.ByProject {
			rows = append(rows, []string{
				p.Project,
				cli.FormatAmount(p.Budget),
				cli.FormatAmount(p.Committed),
				cli.RenderUsageBar(p.Committed, p.Budget, 16),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "By Project",
			Headers: []string{"Project", "Budget", "Committed", "Usage"},
			Rows:    rows,
		}))
	}

	drift, err := svc.Verify(ctx)
	if err != nil {
		return err
	}
	if len(drift) > 0 {
		fmt.Println()
		fmt.Println("  " + cli.RenderWarning(fmt.Sprintf("%d cached balances are stale; run `ptab balance --recalc`", len(drift))))
	}
	fmt.Println()
	return nil
}
