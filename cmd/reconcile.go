package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/theirongolddev/ptab/internal/cli"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/tui"

	"github.com/spf13/cobra"
)

var (
	flagKind       string
	flagSubRequest int64
	flagSpent      []int64
)

var reconcileCmd = &cobra.Command{
	Use:     "reconcile",
	Aliases: []string{"rec"},
	Short:   "Record, cancel, show and list reconciliations",
}

var reconcileNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Record what was actually spent on a sub-request",
	Long: "Record what was actually spent on a sub-request. Without --spent the\n" +
		"interactive wizard runs; --spent takes one amount per expense line in\n" +
		"order, and a zero leaves that line's commitment untouched.",
	RunE: runReconcileNew,
}

var reconcileCancelCmd = &cobra.Command{
	Use:   "cancel RECONCILIATION_ID",
	Short: "Cancel a reconciliation and revert its lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runReconcileCancel,
}

var reconcileShowCmd = &cobra.Command{
	Use:   "show RECONCILIATION_ID",
	Short: "Show the regularised lines of one reconciliation",
	Args:  cobra.ExactArgs(1),
	RunE:  runReconcileShow,
}

var reconcileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reconciliations with their regularised totals",
	RunE:  runReconcileList,
}

func init() {
	reconcileNewCmd.Flags().StringVar(&flagKind, "kind", model.ReconcileFacture, "Reconciliation kind (advance, momo or facture)")
	reconcileNewCmd.Flags().Int64Var(&flagIssuer, "issuer", 0, "Issuer id")
	reconcileNewCmd.Flags().Int64Var(&flagSubRequest, "sub-request", 0, "Sub-request id")
	reconcileNewCmd.Flags().Int64SliceVar(&flagSpent, "spent", nil, "Spent amount per expense line, in order")

	reconcileListCmd.Flags().BoolVarP(&flagShowAll, "all", "a", false, "Include canceled reconciliations")

	reconcileCmd.AddCommand(reconcileNewCmd, reconcileCancelCmd, reconcileShowCmd, reconcileListCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcileNew(_ *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	var rec model.Reconciliation
	if len(flagSpent) == 0 {
		rec, err = tui.RunReconciliationWizard(ctx, svc)
	} else {
		d := svc.NewReconciliation()
		if err := d.Select(ctx, flagKind, flagIssuer, flagSubRequest); err != nil {
			return err
		}
		if len(flagSpent) != len(d.Lines) {
			d.Abandon()
			return model.Invalid("spent", fmt.Sprintf("sub-request #%d has %d expense lines, got %d amounts",
				flagSubRequest, len(d.Lines), len(flagSpent)))
		}
		for i, amount := range flagSpent {
			if err := d.SetSpent(i, amount); err != nil {
				d.Abandon()
				return err
			}
		}
		rec, err = d.Commit(ctx)
	}

	if errors.Is(err, tui.ErrAborted) {
		fmt.Println("  Abandoned, nothing stored.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("  Registered %s reconciliation #%d on request #%d\n", rec.Kind, rec.ID, rec.RequestID)
	return nil
}

func runReconcileCancel(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0], "reconciliation")
	if err != nil {
		return err
	}
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.CancelReconciliation(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("  Canceled reconciliation #%d\n", id)
	return nil
}

func runReconcileShow(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0], "reconciliation")
	if err != nil {
		return err
	}
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	detail, err := svc.ReconciliationDetail(context.Background(), id)
	if err != nil {
		return err
	}
	rec := detail.Reconciliation

	fmt.Println()
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Reconciliation", "#" + strconv.FormatInt(rec.ID, 10)},
		{"Request", "#" + strconv.FormatInt(rec.RequestID, 10)},
		{"Kind", rec.Kind},
		{"Status", rec.Status},
		{"Registered", cli.FormatDate(rec.RegisteredAt)},
	}))

	rows := make([][]string, 0, len(detail.Lines))
	for _, l := range detail.Lines {
		rows = append(rows, []string{
			"#" + strconv.FormatInt(l.ExpenseLineID, 10),
			"#" + strconv.FormatInt(l.BudgetLineID, 10),
			cli.FormatAmount(l.Original),
			cli.FormatAmount(l.Spent),
			cli.RenderAmount(l.Original - l.Spent),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "Regularised lines",
		Headers:  []string{"Expense", "Budget line", "Committed", "Spent", "Released"},
		Rows:     rows,
		LeftCols: 2,
	}))
	return nil
}

func runReconcileList(_ *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	recs, err := svc.Reconciliations(context.Background())
	if err != nil {
		return err
	}

	var rows [][]string
	for _, r := range recs {
		if !flagShowAll && r.Status != model.StatusActive {
			continue
		}
		rows = append(rows, []string{
			"#" + strconv.FormatInt(r.ReconciliationID, 10),
			"#" + strconv.FormatInt(r.RequestID, 10),
			r.IssuerRef, r.Kind, r.Status, cli.FormatDate(r.RegisteredAt), cli.FormatAmount(r.TotalSpent),
		})
	}
	if len(rows) == 0 {
		fmt.Println("\n  No reconciliations.")
		return nil
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "Reconciliations",
		Headers:  []string{"Rec", "Req", "Issuer", "Kind", "Status", "Registered", "Spent"},
		Rows:     rows,
		LeftCols: 6,
	}))
	return nil
}
