package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/theirongolddev/ptab/internal/cli"
	"github.com/theirongolddev/ptab/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagActivity string
	flagRecalc   bool
	flagVerify   bool
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "List budget line balances",
	RunE:  runBalance,
}

func init() {
	balanceCmd.Flags().IntVar(&flagYear, "year", 0, "Filter to budget year")
	balanceCmd.Flags().StringVar(&flagProject, "project", "", "Filter to project")
	balanceCmd.Flags().StringVar(&flagActivity, "activity", "", "Filter to activity codes containing this")
	balanceCmd.Flags().BoolVar(&flagRecalc, "recalc", false, "Rebuild every balance before listing")
	balanceCmd.Flags().BoolVar(&flagVerify, "verify", false, "Report stale cached balances instead of listing")
	balanceCmd.MarkFlagsMutuallyExclusive("recalc", "verify")
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(_ *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()
	ctx := context.Background()

	if flagVerify {
		drift, err := svc.Verify(ctx)
		if err != nil {
			return err
		}
		if len(drift) == 0 {
			fmt.Println("  All cached balances match.")
			return nil
		}
		rows := make([][]string, len(drift))
		for i, d := range drift {
			cached := cli.FormatAmount(d.Cached)
			if d.Missing {
				cached = "missing"
			}
			rows[i] = []string{strconv.FormatInt(d.ActivityCode, 10), cached, cli.FormatAmount(d.Expected)}
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Stale balances",
			Headers: []string{"Activity", "Cached", "Expected"},
			Rows:    rows,
		}))
		return fmt.Errorf("%d stale balances; run `ptab balance --recalc`", len(drift))
	}

	if flagRecalc {
		if err := svc.Recalculate(ctx); err != nil {
			return err
		}
		progress("Balances rebuilt")
	}

	rows, err := svc.Balances(ctx, model.BalanceFilter{Year: flagYear, Project: flagProject, ActivityCode: flagActivity})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("\n  No active budget lines match.")
		return nil
	}

	var (
		out              = make([][]string, 0, len(rows)+2)
		flagged          = make(map[int]bool)
		baseline, remain int64
	)
	for i, r := range rows {
		out = append(out, []string{
			strconv.FormatInt(r.ActivityCode, 10), r.Project, strconv.Itoa(r.Year), r.ProjectCode, r.ItemCode,
			cli.FormatAmount(r.BaselineAmount), cli.FormatAmount(r.Balance),
		})
		if r.Negative() {
			flagged[i] = true
		}
		baseline += r.BaselineAmount
		remain += r.Balance
	}
	out = append(out, []string{"---"}, []string{"Total", "", "", "", "", cli.FormatAmount(baseline), cli.FormatAmount(remain)})

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "Balances",
		Headers:  []string{"Activity", "Project", "Year", "Proj. code", "Item", "Baseline", "Balance"},
		Rows:     out,
		LeftCols: 5,
		Flagged:  flagged,
	}))
	if len(flagged) > 0 {
		fmt.Println("  " + cli.RenderWarning(fmt.Sprintf("%d budget lines are overdrawn", len(flagged))))
	}
	return nil
}
