package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/ptab/internal/cli"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/sheet"
	"github.com/theirongolddev/ptab/internal/tui"
	"github.com/theirongolddev/ptab/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	flagIssuer  int64
	flagType    string
	flagObject  string
	flagParent  int64
	flagLines   []string
	flagShowAll bool
)

var requestCmd = &cobra.Command{
	Use:     "request",
	Aliases: []string{"req"},
	Short:   "Commit, cancel and list spending requests",
}

var requestNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a request with its initial sub-request",
	Long: "Create a request with its initial sub-request. Without --line the\n" +
		"interactive wizard runs; with --line the request is committed directly.",
	RunE: runRequestNew,
}

var requestComplementCmd = &cobra.Command{
	Use:   "complement",
	Short: "Add a complementary sub-request to an active initial one",
	RunE:  runRequestComplement,
}

var requestCancelCmd = &cobra.Command{
	Use:   "cancel SUB_REQUEST_ID",
	Short: "Cancel an active sub-request and release its budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestCancel,
}

var requestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sub-requests with their committed totals",
	RunE:  runRequestList,
}

func init() {
	requestNewCmd.Flags().Int64Var(&flagIssuer, "issuer", 0, "Issuer id")
	requestNewCmd.Flags().StringVar(&flagType, "type", model.RequestPurchase, "Request type (purchase or travel)")
	requestNewCmd.Flags().StringVar(&flagObject, "object", "", "What the money is for")
	requestNewCmd.Flags().StringArrayVar(&flagLines, "line", nil, "Expense line as ACTIVITY_CODE=AMOUNT (repeatable)")

	requestComplementCmd.Flags().Int64Var(&flagParent, "parent", 0, "Initial sub-request id")
	requestComplementCmd.Flags().StringVar(&flagObject, "object", "", "What the money is for")
	requestComplementCmd.Flags().StringArrayVar(&flagLines, "line", nil, "Expense line as ACTIVITY_CODE=AMOUNT (repeatable)")

	requestListCmd.Flags().BoolVarP(&flagShowAll, "all", "a", false, "Include canceled sub-requests")

	requestCmd.AddCommand(requestNewCmd, requestComplementCmd, requestCancelCmd, requestListCmd)
	rootCmd.AddCommand(requestCmd)
}

type lineArg struct {
	code, amount int64
}

func parseLines(args []string) ([]lineArg, error) {
	out := make([]lineArg, 0, len(args))
	for _, a := range args {
		code, amount, ok := strings.Cut(a, "=")
		if !ok {
			return nil, model.Invalid("line", fmt.Sprintf("%q is not ACTIVITY_CODE=AMOUNT", a))
		}
		c, err := strconv.ParseInt(strings.TrimSpace(code), 10, 64)
		if err != nil {
			return nil, model.Invalid("line", fmt.Sprintf("%q: bad activity code", a))
		}
		n, err := sheet.ParseAmount(amount)
		if err != nil {
			return nil, model.Invalid("line", fmt.Sprintf("%q: %v", a, err))
		}
		out = append(out, lineArg{c, n})
	}
	return out, nil
}

// commitLines feeds parsed lines into d and commits it.
func commitLines(ctx context.Context, d *workflow.RequestDraft, lines []lineArg) (model.SubRequest, error) {
	for _, l := range lines {
		if err := d.AddLine(ctx, l.code, l.amount); err != nil {
			d.Abandon()
			return model.SubRequest{}, fmt.Errorf("activity %d: %w", l.code, err)
		}
	}
	return d.Commit(ctx)
}

func reportSubRequest(sub model.SubRequest, err error) error {
	if errors.Is(err, tui.ErrAborted) {
		fmt.Println("  Abandoned, nothing stored.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("  Committed %s sub-request #%d on request #%d\n", sub.Kind, sub.ID, sub.RequestID)
	return nil
}

func runRequestNew(_ *cobra.Command, _ []string) error {
	lines, err := parseLines(flagLines)
	if err != nil {
		return err
	}
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	if len(lines) == 0 {
		return reportSubRequest(tui.RunRequestWizard(ctx, svc))
	}
	d, err := svc.NewRequest(ctx, flagIssuer, flagType, flagObject)
	if err != nil {
		return err
	}
	return reportSubRequest(commitLines(ctx, d, lines))
}

func runRequestComplement(_ *cobra.Command, _ []string) error {
	lines, err := parseLines(flagLines)
	if err != nil {
		return err
	}
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	if len(lines) == 0 {
		return reportSubRequest(tui.RunComplementWizard(ctx, svc))
	}
	d, err := svc.ComplementRequest(ctx, flagParent, flagObject)
	if err != nil {
		return err
	}
	return reportSubRequest(commitLines(ctx, d, lines))
}

func runRequestCancel(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0], "sub-request")
	if err != nil {
		return err
	}
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.CancelSubRequest(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("  Canceled sub-request #%d\n", id)
	return nil
}

func runRequestList(_ *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	subs, err := svc.SubRequests(context.Background())
	if err != nil {
		return err
	}

	var rows [][]string
	for _, s := range subs {
		if !flagShowAll && s.Status != model.StatusActive {
			continue
		}
		rows = append(rows, []string{
			"#" + strconv.FormatInt(s.SubRequestID, 10),
			"#" + strconv.FormatInt(s.RequestID, 10),
			s.IssuerRef, s.RequestType, s.Kind, cli.Truncate(s.Object, 28), s.Status,
			cli.FormatDate(s.CreatedAt), cli.FormatAmount(s.TotalAmount),
		})
	}
	if len(rows) == 0 {
		fmt.Println("\n  No sub-requests.")
		return nil
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "Sub-requests",
		Headers:  []string{"Sub", "Req", "Issuer", "Type", "Kind", "Object", "Status", "Created", "Total"},
		Rows:     rows,
		LeftCols: 8,
	}))
	return nil
}
