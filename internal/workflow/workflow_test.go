package workflow

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/ptab/internal/ledger"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	svc, s, _ := newTestServiceAt(t)
	return svc, s
}

// newTestServiceAt also returns the database path, for tests that need a
// second connection to the same file.
func newTestServiceAt(t *testing.T) (*Service, *store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ptab.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s, 7), s, path
}

func importOne(t *testing.T, svc *Service, code, amount int64) model.BudgetLine {
	t.Helper()
	lines, err := svc.ImportBudget(context.Background(), 2024, "PTAB", []model.BudgetRow{
		{Activities: "Field work", ProjectCode: "P1", ItemCode: "I1", ActivityCode: code, Amount: amount},
	})
	if err != nil {
		t.Fatalf("ImportBudget: %v", err)
	}
	return lines[0]
}

func addIssuer(t *testing.T, svc *Service) model.Issuer {
	t.Helper()
	i, err := svc.AddIssuer(context.Background(), "iss-01", "finance")
	if err != nil {
		t.Fatalf("AddIssuer: %v", err)
	}
	return i
}

func commitRequest(t *testing.T, svc *Service, issuerID, code, amount int64) model.SubRequest {
	t.Helper()
	ctx := context.Background()
	d, err := svc.NewRequest(ctx, issuerID, model.RequestPurchase, "office supplies")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := d.AddLine(ctx, code, amount); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	sub, err := d.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return sub
}

func balance(t *testing.T, s *store.Store, lineID int64) int64 {
	t.Helper()
	var amount int64
	err := s.View(context.Background(), func(tx *store.Tx) error {
		var err error
		amount, err = ledger.Available(context.Background(), tx, lineID)
		return err
	})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return amount
}

// assertInvariant recomputes every balance and fails on any drift.
func assertInvariant(t *testing.T, svc *Service) {
	t.Helper()
	drift, err := svc.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(drift) != 0 {
		t.Fatalf("balance drift: %+v", drift)
	}
}

func TestImportBudget_SetsBaselineBalance(t *testing.T) {
	svc, s := newTestService(t)
	line := importOne(t, svc, 1001, 5000)
	if got := balance(t, s, line.ID); got != 5000 {
		t.Fatalf("balance = %d, want 5000", got)
	}
	assertInvariant(t, svc)
}

func TestImportBudget_RejectsDuplicateCodes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportBudget(ctx, 2024, "PTAB", []model.BudgetRow{
		{ActivityCode: 1, Amount: 10},
		{ActivityCode: 1, Amount: 20},
	})
	if !model.IsValidation(err) {
		t.Fatalf("duplicate in batch: err = %v, want ValidationError", err)
	}

	importOne(t, svc, 2, 10)
	_, err = svc.ImportBudget(ctx, 2025, "PTAB", []model.BudgetRow{{ActivityCode: 2, Amount: 10}})
	if !model.IsValidation(err) {
		t.Fatalf("duplicate in store: err = %v, want ValidationError", err)
	}
}

func TestDeactivateBudget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 5000)

	n, err := svc.DeactivateBudget(ctx, 2024, "PTAB")
	if err != nil {
		t.Fatalf("DeactivateBudget: %v", err)
	}
	if n != 1 {
		t.Fatalf("deactivated = %d, want 1", n)
	}
	rows, err := svc.Balances(ctx, model.BalanceFilter{})
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("balance rows = %d, want 0", len(rows))
	}

	if _, err := svc.DeactivateBudget(ctx, 2024, "PTAB"); !model.IsNotFound(err) {
		t.Fatalf("second deactivate err = %v, want NotFoundError", err)
	}
}

func TestRequest_CommitRecalculates(t *testing.T) {
	svc, s := newTestService(t)
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)

	sub := commitRequest(t, svc, issuer.ID, 1001, 400)
	if sub.Kind != model.SubRequestInitial {
		t.Fatalf("kind = %q, want initial", sub.Kind)
	}
	if got := balance(t, s, line.ID); got != 600 {
		t.Fatalf("balance = %d, want 600", got)
	}
	assertInvariant(t, svc)
}

func TestRequest_TravelCreatesAdvance(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)

	d, err := svc.NewRequest(ctx, issuer.ID, model.RequestTravel, "mission to Goma")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := d.AddLine(ctx, 1001, 250); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	sub, err := d.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var travel []model.Travel
	err = s.View(ctx, func(tx *store.Tx) error {
		var err error
		travel, err = tx.TravelBySubRequest(ctx, sub.ID)
		return err
	})
	if err != nil {
		t.Fatalf("TravelBySubRequest: %v", err)
	}
	if len(travel) != 1 || travel[0].TravelType != model.TravelAdvance {
		t.Fatalf("travel = %+v, want one advance record", travel)
	}
}

func TestRequest_AddLineRejectsOverdraft(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	commitRequest(t, svc, issuer.ID, 1001, 900)

	d, err := svc.NewRequest(ctx, issuer.ID, model.RequestPurchase, "chairs")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	err = d.AddLine(ctx, 1001, 150)
	var ib *model.InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("err = %v, want InsufficientBalanceError", err)
	}
	if ib.Available != 100 || ib.Requested != 150 {
		t.Fatalf("available, requested = %d, %d, want 100, 150", ib.Available, ib.Requested)
	}
	if len(d.Lines) != 0 {
		t.Fatalf("draft lines = %d, want 0", len(d.Lines))
	}
	if got := balance(t, s, line.ID); got != 100 {
		t.Fatalf("balance = %d, want 100", got)
	}
}

func TestRequest_AddLineCountsQueuedLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)

	d, err := svc.NewRequest(ctx, issuer.ID, model.RequestPurchase, "desks")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := d.AddLine(ctx, 1001, 600); err != nil {
		t.Fatalf("first AddLine: %v", err)
	}
	if err := d.AddLine(ctx, 1001, 600); !model.IsInsufficient(err) {
		t.Fatalf("second AddLine err = %v, want insufficient balance", err)
	}
}

func TestRequest_AddLineHugeAmountAfterQueuedLine(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)

	d, err := svc.NewRequest(ctx, issuer.ID, model.RequestPurchase, "desks")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := d.AddLine(ctx, 1001, 100); err != nil {
		t.Fatalf("first AddLine: %v", err)
	}
	if err := d.AddLine(ctx, 1001, math.MaxInt64); !model.IsValidation(err) {
		t.Fatalf("AddLine(MaxInt64) err = %v, want ValidationError", err)
	}

	err = d.AddLine(ctx, 1001, model.MaxAmount)
	var ib *model.InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("AddLine(MaxAmount) err = %v, want InsufficientBalanceError", err)
	}
	if ib.Available != 900 {
		t.Fatalf("available = %d, want 900", ib.Available)
	}
	if len(d.Lines) != 1 {
		t.Fatalf("draft lines = %d, want 1", len(d.Lines))
	}

	if _, err := d.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := balance(t, s, line.ID); got != 900 {
		t.Fatalf("balance = %d, want 900", got)
	}
}

func TestRequest_AddLineUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	issuer := addIssuer(t, svc)
	d, err := svc.NewRequest(ctx, issuer.ID, model.RequestPurchase, "desks")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := d.AddLine(ctx, 404, 10); !model.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if err := d.AddLine(ctx, 404, 0); !model.IsValidation(err) {
		t.Fatalf("zero amount err = %v, want ValidationError", err)
	}
}

func TestRequest_CommitWithoutLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	issuer := addIssuer(t, svc)
	d, err := svc.NewRequest(ctx, issuer.ID, model.RequestPurchase, "desks")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if _, err := d.Commit(ctx); !model.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if d.State != Editing {
		t.Fatalf("state = %s, want editing", d.State)
	}
}

func TestRequest_CommitAfterLineDeactivated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)

	d, err := svc.NewRequest(ctx, issuer.ID, model.RequestPurchase, "desks")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := d.AddLine(ctx, 1001, 100); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if _, err := svc.DeactivateBudget(ctx, 2024, "PTAB"); err != nil {
		t.Fatalf("DeactivateBudget: %v", err)
	}
	if _, err := d.Commit(ctx); !model.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	rows, err := svc.SubRequests(ctx)
	if err != nil {
		t.Fatalf("SubRequests: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("sub-requests = %d, want 0 after rollback", len(rows))
	}
}

func TestComplementaryRequest(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	initial := commitRequest(t, svc, issuer.ID, 1001, 400)

	d, err := svc.ComplementRequest(ctx, initial.ID, "extra toner")
	if err != nil {
		t.Fatalf("ComplementRequest: %v", err)
	}
	if err := d.AddLine(ctx, 1001, 100); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	sub, err := d.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if sub.Kind != model.SubRequestComplementary || sub.RequestID != initial.RequestID {
		t.Fatalf("sub = %+v, want complementary under request %d", sub, initial.RequestID)
	}
	if got := balance(t, s, line.ID); got != 500 {
		t.Fatalf("balance = %d, want 500", got)
	}
}

func TestComplementaryRequest_CanceledInitial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	initial := commitRequest(t, svc, issuer.ID, 1001, 400)

	if err := svc.CancelSubRequest(ctx, initial.ID); err != nil {
		t.Fatalf("CancelSubRequest: %v", err)
	}
	if _, err := svc.ComplementRequest(ctx, initial.ID, "extra"); !model.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestComplementaryRequest_InitialCanceledBeforeCommit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	initial := commitRequest(t, svc, issuer.ID, 1001, 400)

	d, err := svc.ComplementRequest(ctx, initial.ID, "extra")
	if err != nil {
		t.Fatalf("ComplementRequest: %v", err)
	}
	if err := d.AddLine(ctx, 1001, 50); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if err := svc.CancelSubRequest(ctx, initial.ID); err != nil {
		t.Fatalf("CancelSubRequest: %v", err)
	}
	if _, err := d.Commit(ctx); !model.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestCancelSubRequest_GivesBackBudget(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	if err := svc.CancelSubRequest(ctx, sub.ID); err != nil {
		t.Fatalf("CancelSubRequest: %v", err)
	}
	if got := balance(t, s, line.ID); got != 1000 {
		t.Fatalf("balance = %d, want 1000", got)
	}
	if err := svc.CancelSubRequest(ctx, sub.ID); !model.IsNotFound(err) {
		t.Fatalf("second cancel err = %v, want NotFoundError", err)
	}
}

func TestReconciliation_Reversible(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	d := svc.NewReconciliation()
	if err := d.Select(ctx, model.ReconcileFacture, issuer.ID, sub.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d.State != LineEntry || len(d.Lines) != 1 {
		t.Fatalf("state = %s, lines = %d, want line_entry with 1 line", d.State, len(d.Lines))
	}
	if d.Lines[0].Original != 400 || d.Lines[0].Spent != 0 {
		t.Fatalf("line = %+v, want original 400 spent 0", d.Lines[0])
	}
	if err := d.SetSpent(0, 300); err != nil {
		t.Fatalf("SetSpent: %v", err)
	}
	rec, err := d.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := balance(t, s, line.ID); got != 700 {
		t.Fatalf("after reconciliation balance = %d, want 700", got)
	}
	assertInvariant(t, svc)

	if err := svc.CancelReconciliation(ctx, rec.ID); err != nil {
		t.Fatalf("CancelReconciliation: %v", err)
	}
	if got := balance(t, s, line.ID); got != 600 {
		t.Fatalf("after cancel balance = %d, want 600", got)
	}
	assertInvariant(t, svc)
}

func TestReconciliation_SelectErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	other, err := svc.AddIssuer(ctx, "iss-02", "logistics")
	if err != nil {
		t.Fatalf("AddIssuer: %v", err)
	}
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	d := svc.NewReconciliation()
	if err := d.Select(ctx, "cash", issuer.ID, sub.ID); !model.IsValidation(err) {
		t.Fatalf("bad kind err = %v, want ValidationError", err)
	}
	if err := d.Select(ctx, model.ReconcileMomo, other.ID, sub.ID); !model.IsNotFound(err) {
		t.Fatalf("foreign issuer err = %v, want NotFoundError", err)
	}
	if d.State != Selecting {
		t.Fatalf("state = %s, want selecting", d.State)
	}
	if d.Err == nil {
		t.Fatal("draft error not recorded")
	}
}

func TestReconciliation_RequiresPositiveSpent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	d := svc.NewReconciliation()
	if err := d.Select(ctx, model.ReconcileAdvance, issuer.ID, sub.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := d.Commit(ctx); !model.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if d.State != LineEntry {
		t.Fatalf("state = %s, want line_entry", d.State)
	}
}

func TestReconciliation_SpentOutOfRange(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 100)

	d := svc.NewReconciliation()
	if err := d.Select(ctx, model.ReconcileFacture, issuer.ID, sub.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := d.SetSpent(0, math.MaxInt64); !model.IsValidation(err) {
		t.Fatalf("SetSpent(MaxInt64) err = %v, want ValidationError", err)
	}
	if d.Lines[0].Spent != 0 {
		t.Fatalf("spent = %d, want 0", d.Lines[0].Spent)
	}
	if got := balance(t, s, line.ID); got != 900 {
		t.Fatalf("balance = %d, want 900", got)
	}
}

// TestReconciliation_StoreFailureRollsBack makes the regularisation insert
// fail after the reconciliation row is written.
func TestReconciliation_StoreFailureRollsBack(t *testing.T) {
	svc, s, path := newTestServiceAt(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	d := svc.NewReconciliation()
	if err := d.Select(ctx, model.ReconcileFacture, issuer.ID, sub.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := d.SetSpent(0, 300); err != nil {
		t.Fatalf("SetSpent: %v", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open second connection: %v", err)
	}
	exec := func(q string) {
		t.Helper()
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	exec(`CREATE TRIGGER fail_regularisation BEFORE INSERT ON regularisation_line
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)

	_, err = d.Commit(ctx)
	var txErr *model.TxError
	if !errors.As(err, &txErr) {
		t.Fatalf("err = %v, want *model.TxError", err)
	}
	if d.State != LineEntry || d.Err == nil {
		t.Fatalf("state = %s, err = %v, want line_entry with error", d.State, d.Err)
	}
	recs, err := svc.Reconciliations(ctx)
	if err != nil {
		t.Fatalf("Reconciliations: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("reconciliations = %d, want 0", len(recs))
	}
	if got := balance(t, s, line.ID); got != 600 {
		t.Fatalf("balance = %d, want 600", got)
	}

	exec("DROP TRIGGER fail_regularisation")
	_ = db.Close()
	if _, err := d.Commit(ctx); err != nil {
		t.Fatalf("retry Commit: %v", err)
	}
	if got := balance(t, s, line.ID); got != 700 {
		t.Fatalf("balance after retry = %d, want 700", got)
	}
	assertInvariant(t, svc)
}

func TestReconciliationDetail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	d := svc.NewReconciliation()
	if err := d.Select(ctx, model.ReconcileMomo, issuer.ID, sub.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := d.SetSpent(0, 350); err != nil {
		t.Fatalf("SetSpent: %v", err)
	}
	rec, err := d.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := svc.CancelReconciliation(ctx, rec.ID); err != nil {
		t.Fatalf("CancelReconciliation: %v", err)
	}

	detail, err := svc.ReconciliationDetail(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ReconciliationDetail: %v", err)
	}
	if detail.Reconciliation.Status != model.StatusCanceled {
		t.Fatalf("status = %q, want %q", detail.Reconciliation.Status, model.StatusCanceled)
	}
	if len(detail.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(detail.Lines))
	}
	got := detail.Lines[0]
	if got.BudgetLineID != line.ID || got.Original != 400 || got.Spent != 350 {
		t.Fatalf("line = %+v, want budget line %d original 400 spent 350", got, line.ID)
	}

	if _, err := svc.ReconciliationDetail(ctx, 999); !model.IsNotFound(err) {
		t.Fatalf("unknown id err = %v, want NotFoundError", err)
	}
}

func TestReconciliation_RejectsSecondActiveRegularisation(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	line := importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	for i, spent := range []int64{300, 350} {
		d := svc.NewReconciliation()
		if err := d.Select(ctx, model.ReconcileFacture, issuer.ID, sub.ID); err != nil {
			t.Fatalf("Select %d: %v", i, err)
		}
		if err := d.SetSpent(0, spent); err != nil {
			t.Fatalf("SetSpent %d: %v", i, err)
		}
		_, err := d.Commit(ctx)
		if i == 0 && err != nil {
			t.Fatalf("first Commit: %v", err)
		}
		if i == 1 {
			if !errors.Is(err, model.ErrConflictingRegularisation) {
				t.Fatalf("second Commit err = %v, want ErrConflictingRegularisation", err)
			}
			if d.State != LineEntry {
				t.Fatalf("state = %s, want line_entry", d.State)
			}
		}
	}
	if got := balance(t, s, line.ID); got != 700 {
		t.Fatalf("balance = %d, want 700", got)
	}
	rows, err := svc.Reconciliations(ctx)
	if err != nil {
		t.Fatalf("Reconciliations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("reconciliations = %d, want 1", len(rows))
	}
}

func TestReconciliation_BackAndAbandon(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	d := svc.NewReconciliation()
	if err := d.Back(); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("Back from selecting err = %v, want ErrInvalidTransition", err)
	}
	if err := d.Select(ctx, model.ReconcileMomo, issuer.ID, sub.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := d.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if d.State != Selecting || d.Lines != nil {
		t.Fatalf("state = %s, lines = %v, want selecting with no lines", d.State, d.Lines)
	}
	d.Abandon()
	if err := d.Select(ctx, model.ReconcileMomo, issuer.ID, sub.ID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("Select after abandon err = %v, want ErrInvalidTransition", err)
	}
}

func TestDashboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	importOne(t, svc, 1001, 1000)
	issuer := addIssuer(t, svc)
	sub := commitRequest(t, svc, issuer.ID, 1001, 400)

	d := svc.NewReconciliation()
	if err := d.Select(ctx, model.ReconcileFacture, issuer.ID, sub.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := d.SetSpent(0, 350); err != nil {
		t.Fatalf("SetSpent: %v", err)
	}
	if _, err := d.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	stats, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stats.TotalBudget != 1000 {
		t.Errorf("TotalBudget = %d, want 1000", stats.TotalBudget)
	}
	if stats.TotalCommitted != 400 {
		t.Errorf("TotalCommitted = %d, want 400", stats.TotalCommitted)
	}
	if stats.TotalRegularised != 350 {
		t.Errorf("TotalRegularised = %d, want 350", stats.TotalRegularised)
	}
	if stats.TotalRemaining != 650 {
		t.Errorf("TotalRemaining = %d, want 650", stats.TotalRemaining)
	}
}

func TestIssuers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	i := addIssuer(t, svc)
	if i.CreatedBy != 7 {
		t.Fatalf("CreatedBy = %d, want 7", i.CreatedBy)
	}
	if err := svc.DeactivateIssuer(ctx, i.ID); err != nil {
		t.Fatalf("DeactivateIssuer: %v", err)
	}
	active, err := svc.ListIssuers(ctx, true)
	if err != nil {
		t.Fatalf("ListIssuers: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active issuers = %d, want 0", len(active))
	}
	if _, err := svc.NewRequest(ctx, i.ID, model.RequestPurchase, "x"); !model.IsNotFound(err) {
		t.Fatalf("NewRequest err = %v, want NotFoundError", err)
	}
	if _, err := svc.AddIssuer(ctx, "", "ops"); !model.IsValidation(err) {
		t.Fatalf("AddIssuer err = %v, want ValidationError", err)
	}
}
