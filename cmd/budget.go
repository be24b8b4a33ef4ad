package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/theirongolddev/ptab/internal/cli"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/sheet"
	"github.com/theirongolddev/ptab/internal/tui"

	"github.com/spf13/cobra"
)

var (
	flagYear    int
	flagProject string
	flagDryRun  bool
	flagYes     bool
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Import, list and deactivate budgets",
}

var budgetImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import budget lines from a .csv or .xlsx sheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetImport,
}

var budgetDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate every active line of one year and project",
	RunE:  runBudgetDeactivate,
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active lines of one year and project",
	RunE:  runBudgetList,
}

func init() {
	for _, c := range []*cobra.Command{budgetImportCmd, budgetDeactivateCmd, budgetListCmd} {
		c.Flags().IntVar(&flagYear, "year", 0, "Budget year")
		c.Flags().StringVar(&flagProject, "project", "", "Project name")
	}
	budgetImportCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Parse and show the rows without importing")
	budgetDeactivateCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Skip the confirmation prompt")

	budgetCmd.AddCommand(budgetImportCmd, budgetDeactivateCmd, budgetListCmd)
	rootCmd.AddCommand(budgetCmd)
}

func runBudgetImport(_ *cobra.Command, args []string) error {
	year, project, err := scope(flagYear, flagProject)
	if err != nil {
		return err
	}
	rows, err := sheet.ReadFile(args[0])
	if err != nil {
		return err
	}
	progress("Read %d rows from %s", len(rows), args[0])

	if flagDryRun {
		out := make([][]string, len(rows))
		var total int64
		for i, r := range rows {
			out[i] = []string{strconv.FormatInt(r.ActivityCode, 10), r.ProjectCode, r.ItemCode,
				cli.Truncate(r.Activities, 32), cli.FormatAmount(r.Amount)}
			total += r.Amount
		}
		out = append(out, []string{"---"}, []string{"Total", "", "", "", cli.FormatAmount(total)})
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:    fmt.Sprintf("%s %d (dry run)", project, year),
			Headers:  []string{"Activity", "Proj. code", "Item", "Activities", "Amount"},
			Rows:     out,
			LeftCols: 4,
		}))
		return nil
	}

	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	lines, err := svc.ImportBudget(context.Background(), year, project, rows)
	if err != nil {
		return err
	}
	var total int64
	for _, l := range lines {
		total += l.BaselineAmount
	}
	fmt.Printf("\n  Imported %d budget lines for %s %d, total %s\n\n",
		len(lines), project, year, cli.FormatAmount(total))
	return nil
}

func runBudgetDeactivate(_ *cobra.Command, _ []string) error {
	year, project, err := scope(flagYear, flagProject)
	if err != nil {
		return err
	}
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	lines, err := svc.BudgetPreview(ctx, year, project)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return &model.NotFoundError{Entity: "active budget", Key: fmt.Sprintf("%s %d", project, year)}
	}

	if !flagYes {
		ok, err := tui.Confirm(
			fmt.Sprintf("Deactivate %d budget lines of %s %d?", len(lines), project, year),
			"Their expense lines stop counting against any balance.")
		if errors.Is(err, tui.ErrAborted) || (err == nil && !ok) {
			fmt.Println("  Nothing changed.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	n, err := svc.DeactivateBudget(ctx, year, project)
	if err != nil {
		return err
	}
	fmt.Printf("  Deactivated %d budget lines of %s %d\n", n, project, year)
	return nil
}

func runBudgetList(_ *cobra.Command, _ []string) error {
	year, project, err := scope(flagYear, flagProject)
	if err != nil {
		return err
	}
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	lines, err := svc.BudgetPreview(context.Background(), year, project)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Printf("\n  No active budget lines for %s %d.\n", project, year)
		return nil
	}

	rows := make([][]string, len(lines))
	for i, l := range lines {
		rows[i] = []string{strconv.FormatInt(l.ActivityCode, 10), l.ProjectCode, l.Result, l.ItemCode,
			cli.Truncate(l.Activities, 32), cli.FormatAmount(l.BaselineAmount)}
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    fmt.Sprintf("%s %d", project, year),
		Headers:  []string{"Activity", "Proj. code", "Result", "Item", "Activities", "Baseline"},
		Rows:     rows,
		LeftCols: 5,
	}))
	return nil
}
