package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/theirongolddev/ptab/internal/cli"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/sheet"
	"github.com/theirongolddev/ptab/internal/tui/theme"
	"github.com/theirongolddev/ptab/internal/workflow"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the operator leaves a wizard. Nothing was
// stored.
var ErrAborted = errors.New("wizard abandoned")

var errPositive = errors.New("must be a positive whole number")

func runForm(groups ...*huh.Group) error {
	err := huh.NewForm(groups...).WithTheme(theme.Active.FormTheme()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

func warn(err error) {
	fmt.Fprintln(os.Stderr, cli.RenderWarning(err.Error()))
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func wholeAmount(s string) error {
	_, err := sheet.ParseAmount(s)
	return err
}

// Confirm asks a yes/no question.
func Confirm(title, description string) (bool, error) {
	var ok bool
	err := runForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Description(description).Affirmative("Yes").Negative("No").Value(&ok),
	))
	return ok, err
}

func issuerOptions(ctx context.Context, svc *workflow.Service) ([]huh.Option[int64], error) {
	issuers, err := svc.ListIssuers(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(issuers) == 0 {
		return nil, errors.New("no active issuers; add one with `ptab issuer add`")
	}
	opts := make([]huh.Option[int64], len(issuers))
	for i, is := range issuers {
		opts[i] = huh.NewOption(fmt.Sprintf("%s (%s)", is.NameRef, is.Department), is.ID)
	}
	return opts, nil
}

// RunRequestWizard collects a new request with its initial sub-request and
// commits it.
func RunRequestWizard(ctx context.Context, svc *workflow.Service) (model.SubRequest, error) {
	issuers, err := issuerOptions(ctx, svc)
	if err != nil {
		return model.SubRequest{}, err
	}

	var (
		issuerID    int64
		requestType = model.RequestPurchase
		object      string
	)
	for {
		err := runForm(huh.NewGroup(
			huh.NewSelect[int64]().Title("Issuer").Options(issuers...).Value(&issuerID),
			huh.NewSelect[string]().Title("Request type").Options(
				huh.NewOption("Purchase", model.RequestPurchase),
				huh.NewOption("Travel", model.RequestTravel),
			).Value(&requestType),
			huh.NewInput().Title("Object").Description("What the money is for").Value(&object).Validate(required),
		))
		if err != nil {
			return model.SubRequest{}, err
		}
		d, err := svc.NewRequest(ctx, issuerID, requestType, object)
		if err != nil {
			warn(err)
			continue
		}
		return editRequest(ctx, d)
	}
}

// RunComplementWizard collects a complementary sub-request under an active
// initial sub-request and commits it.
func RunComplementWizard(ctx context.Context, svc *workflow.Service) (model.SubRequest, error) {
	initials, err := svc.ActiveSubRequests(ctx, 0, model.SubRequestInitial)
	if err != nil {
		return model.SubRequest{}, err
	}
	if len(initials) == 0 {
		return model.SubRequest{}, errors.New("no active initial sub-requests to complement")
	}
	opts := make([]huh.Option[int64], len(initials))
	for i, s := range initials {
		opts[i] = huh.NewOption(fmt.Sprintf("#%d %s", s.ID, s.Object), s.ID)
	}

	var (
		parentID int64
		object   string
	)
	for {
		err := runForm(huh.NewGroup(
			huh.NewSelect[int64]().Title("Initial sub-request").Options(opts...).Value(&parentID),
			huh.NewInput().Title("Object").Value(&object).Validate(required),
		))
		if err != nil {
			return model.SubRequest{}, err
		}
		d, err := svc.ComplementRequest(ctx, parentID, object)
		if err != nil {
			warn(err)
			continue
		}
		return editRequest(ctx, d)
	}
}

const (
	actionAdd    = "add"
	actionRemove = "remove"
	actionCommit = "commit"
	actionBack   = "back"
	actionQuit   = "quit"
)

func editRequest(ctx context.Context, d *workflow.RequestDraft) (model.SubRequest, error) {
	for {
		var code, amount string
		err := runForm(huh.NewGroup(
			huh.NewNote().Title("Expense lines").Description(describeDraft(d)),
			huh.NewInput().Title("Activity code").Value(&code).Validate(func(s string) error {
				_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
				return err
			}),
			huh.NewInput().Title("Amount").Value(&amount).Validate(wholeAmount),
		))
		if err != nil {
			d.Abandon()
			return model.SubRequest{}, err
		}
		c, _ := strconv.ParseInt(strings.TrimSpace(code), 10, 64)
		a, _ := sheet.ParseAmount(amount)
		if err := d.AddLine(ctx, c, a); err != nil {
			warn(err)
		}

		for {
			action := actionAdd
			opts := []huh.Option[string]{huh.NewOption("Add another line", actionAdd)}
			if len(d.Lines) > 0 {
				opts = append(opts,
					huh.NewOption("Remove last line", actionRemove),
					huh.NewOption("Save request", actionCommit))
			}
			opts = append(opts, huh.NewOption("Abandon", actionQuit))
			if err := runForm(huh.NewGroup(
				huh.NewNote().Title("Draft").Description(describeDraft(d)),
				huh.NewSelect[string]().Title("Next").Options(opts...).Value(&action),
			)); err != nil {
				d.Abandon()
				return model.SubRequest{}, err
			}

			switch action {
			case actionRemove:
				_ = d.RemoveLine(len(d.Lines) - 1)
				continue
			case actionCommit:
				sub, err := d.Commit(ctx)
				if err != nil {
					warn(err)
					continue
				}
				return sub, nil
			case actionQuit:
				d.Abandon()
				return model.SubRequest{}, ErrAborted
			}
			break
		}
	}
}

func describeDraft(d *workflow.RequestDraft) string {
	if len(d.Lines) == 0 {
		return "no lines yet"
	}
	var b strings.Builder
	var total int64
	for i, l := range d.Lines {
		fmt.Fprintf(&b, "%d. activity %d: %s\n", i+1, l.ActivityCode, cli.FormatAmount(l.Amount))
		total += l.Amount
	}
	fmt.Fprintf(&b, "total %s", cli.FormatAmount(total))
	return b.String()
}

// RunReconciliationWizard walks the operator through selecting a
// sub-request and recording the amounts actually spent.
func RunReconciliationWizard(ctx context.Context, svc *workflow.Service) (model.Reconciliation, error) {
	issuers, err := issuerOptions(ctx, svc)
	if err != nil {
		return model.Reconciliation{}, err
	}
	kinds := make([]huh.Option[string], len(model.ReconciliationKinds))
	for i, k := range model.ReconciliationKinds {
		kinds[i] = huh.NewOption(k, k)
	}

	d := svc.NewReconciliation()
	for {
		for d.State == workflow.Selecting {
			if err := selectSubRequest(ctx, svc, d, kinds, issuers); err != nil {
				d.Abandon()
				return model.Reconciliation{}, err
			}
		}

		rec, err := enterSpent(ctx, d)
		switch {
		case err == nil:
			return rec, nil
		case errors.Is(err, errBack):
			_ = d.Back()
		case errors.Is(err, ErrAborted):
			d.Abandon()
			return model.Reconciliation{}, err
		default:
			warn(err)
		}
	}
}

// selectSubRequest runs one pass of the selection forms. A selection the
// draft refuses is reported and leaves it in Selecting.
func selectSubRequest(ctx context.Context, svc *workflow.Service, d *workflow.ReconciliationDraft,
	kinds []huh.Option[string], issuers []huh.Option[int64]) error {
	var (
		kind     = model.ReconcileFacture
		issuerID int64
	)
	if err := runForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Reconciliation kind").Options(kinds...).Value(&kind),
		huh.NewSelect[int64]().Title("Issuer").Options(issuers...).Value(&issuerID),
	)); err != nil {
		return err
	}

	subs, err := svc.ActiveSubRequests(ctx, issuerID, "")
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		warn(errors.New("this issuer has no active sub-requests"))
		return nil
	}
	opts := make([]huh.Option[int64], len(subs))
	for i, s := range subs {
		opts[i] = huh.NewOption(fmt.Sprintf("#%d %s (%s)", s.ID, s.Object, s.Kind), s.ID)
	}
	var subID int64
	if err := runForm(huh.NewGroup(
		huh.NewSelect[int64]().Title("Sub-request").Options(opts...).Value(&subID),
	)); err != nil {
		return err
	}
	if err := d.Select(ctx, kind, issuerID, subID); err != nil {
		warn(err)
	}
	return nil
}

var errBack = errors.New("back to selection")

func enterSpent(ctx context.Context, d *workflow.ReconciliationDraft) (model.Reconciliation, error) {
	values := make([]string, len(d.Lines))
	fields := make([]huh.Field, 0, len(d.Lines)+1)
	for i, l := range d.Lines {
		values[i] = strconv.FormatInt(l.Spent, 10)
		fields = append(fields, huh.NewInput().
			Title(fmt.Sprintf("Line %d: budget line %d", i+1, l.BudgetLineID)).
			Description("committed "+cli.FormatAmount(l.Original)).
			Value(&values[i]).
			Validate(wholeAmount))
	}
	action := actionCommit
	fields = append(fields, huh.NewSelect[string]().Title("Next").Options(
		huh.NewOption("Save reconciliation", actionCommit),
		huh.NewOption("Back to selection", actionBack),
		huh.NewOption("Abandon", actionQuit),
	).Value(&action))

	if err := runForm(huh.NewGroup(fields...)); err != nil {
		return model.Reconciliation{}, err
	}
	switch action {
	case actionBack:
		return model.Reconciliation{}, errBack
	case actionQuit:
		return model.Reconciliation{}, ErrAborted
	}

	for i, v := range values {
		amount, _ := sheet.ParseAmount(v)
		if err := d.SetSpent(i, amount); err != nil {
			return model.Reconciliation{}, err
		}
	}
	return d.Commit(ctx)
}
