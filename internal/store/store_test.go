package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/ptab/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "ptab.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func line(code, amount int64) *model.BudgetLine {
	return &model.BudgetLine{
		Year: 2024, Project: "PTAB", Activities: "field work",
		ProjectCode: "P1", ItemCode: "I1", ActivityCode: code, BaselineAmount: amount,
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.InsertBudgetLine(ctx, line(1001, 500)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx = %v, want boom", err)
	}

	_ = s.View(ctx, func(tx *Tx) error {
		if _, err := tx.BudgetLineByActivityCode(ctx, 1001); !errors.Is(err, ErrNoRow) {
			t.Errorf("lookup after rollback = %v, want ErrNoRow", err)
		}
		return nil
	})
}

func TestViewDiscardsWrites(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	err := s.View(ctx, func(tx *Tx) error {
		return tx.InsertBudgetLine(ctx, line(1001, 500))
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	_ = s.View(ctx, func(tx *Tx) error {
		lines, err := tx.ActiveBudgetLines(ctx)
		if err != nil {
			t.Fatalf("ActiveBudgetLines: %v", err)
		}
		if len(lines) != 0 {
			t.Errorf("lines = %d, want 0", len(lines))
		}
		return nil
	})
}

func TestBudgetLineStatusAndUniqueCode(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	var id int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		b := line(1001, 500)
		if err := tx.InsertBudgetLine(ctx, b); err != nil {
			return err
		}
		id = b.ID
		if err := tx.InsertBudgetLine(ctx, line(1002, 300)); err != nil {
			return err
		}
		return tx.SetBudgetLineStatus(ctx, id, model.StatusInactive)
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	_ = s.View(ctx, func(tx *Tx) error {
		active, err := tx.ActiveBudgetLinesFor(ctx, 2024, "PTAB")
		if err != nil {
			t.Fatalf("ActiveBudgetLinesFor: %v", err)
		}
		if len(active) != 1 || active[0].ActivityCode != 1002 {
			t.Errorf("active = %+v, want only code 1002", active)
		}
		b, err := tx.BudgetLine(ctx, id)
		if err != nil {
			t.Fatalf("BudgetLine: %v", err)
		}
		if b.Active() {
			t.Errorf("line %d still active", id)
		}
		return nil
	})

	err = s.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertBudgetLine(ctx, line(1001, 10))
	})
	if err == nil {
		t.Fatal("duplicate activity code accepted")
	}
}

func TestSetStatusMissingRow(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.SetIssuerStatus(ctx, 42, model.StatusInactive)
	})
	if !errors.Is(err, ErrNoRow) {
		t.Fatalf("SetIssuerStatus = %v, want ErrNoRow", err)
	}
}

func TestIssuerTimestampsUseClock(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return at })

	var id int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		i := &model.Issuer{NameRef: "iss-01", Department: "finance", CreatedBy: 3}
		if err := tx.InsertIssuer(ctx, i); err != nil {
			return err
		}
		id = i.ID
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	_ = s.View(ctx, func(tx *Tx) error {
		i, err := tx.Issuer(ctx, id)
		if err != nil {
			t.Fatalf("Issuer: %v", err)
		}
		if !i.CreatedAt.Equal(at) {
			t.Errorf("created_at = %v, want %v", i.CreatedAt, at)
		}
		if i.Status != model.StatusActive {
			t.Errorf("status = %q, want %q", i.Status, model.StatusActive)
		}
		return nil
	})
}

func TestBalancesReplace(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		b := line(1001, 500)
		if err := tx.InsertBudgetLine(ctx, b); err != nil {
			return err
		}
		if err := tx.InsertBalance(ctx, model.Balance{BudgetLineID: b.ID, Amount: 500}); err != nil {
			return err
		}
		if err := tx.DeleteAllBalances(ctx); err != nil {
			return err
		}
		return tx.InsertBalance(ctx, model.Balance{BudgetLineID: b.ID, Amount: 200})
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	_ = s.View(ctx, func(tx *Tx) error {
		m, err := tx.Balances(ctx)
		if err != nil {
			t.Fatalf("Balances: %v", err)
		}
		if len(m) != 1 {
			t.Fatalf("balances = %d, want 1", len(m))
		}
		for _, amount := range m {
			if amount != 200 {
				t.Errorf("balance = %d, want 200", amount)
			}
		}
		return nil
	})
}

func TestActiveRegularisationLines(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	var canceled int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		b := line(1001, 500)
		if err := tx.InsertBudgetLine(ctx, b); err != nil {
			return err
		}
		i := &model.Issuer{NameRef: "iss-01", Department: "finance", CreatedBy: 3}
		if err := tx.InsertIssuer(ctx, i); err != nil {
			return err
		}
		req := &model.Request{IssuerID: i.ID, Type: model.RequestPurchase}
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		sub := &model.SubRequest{RequestID: req.ID, Kind: model.SubRequestInitial, Object: "chairs", CreatedBy: 3}
		if err := tx.InsertSubRequest(ctx, sub); err != nil {
			return err
		}
		e := &model.ExpenseLine{BudgetLineID: b.ID, SubRequestID: sub.ID, Amount: 200}
		if err := tx.InsertExpenseLine(ctx, e); err != nil {
			return err
		}
		for _, spent := range []int64{150, 180} {
			rec := &model.Reconciliation{RequestID: req.ID, Kind: model.ReconcileFacture, RegisteredBy: 3}
			if err := tx.InsertReconciliation(ctx, rec); err != nil {
				return err
			}
			g := &model.RegularisationLine{ExpenseLineID: e.ID, ReconciliationID: rec.ID, SpentAmount: spent}
			if err := tx.InsertRegularisationLine(ctx, g); err != nil {
				return err
			}
			canceled = rec.ID
		}
		return tx.SetReconciliationStatus(ctx, canceled, model.StatusCanceled)
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	_ = s.View(ctx, func(tx *Tx) error {
		active, err := tx.ActiveRegularisationLines(ctx)
		if err != nil {
			t.Fatalf("ActiveRegularisationLines: %v", err)
		}
		if len(active) != 1 || active[0].SpentAmount != 150 {
			t.Errorf("active = %+v, want only the 150 line", active)
		}
		all, err := tx.RegularisationLinesByReconciliation(ctx, canceled)
		if err != nil {
			t.Fatalf("RegularisationLinesByReconciliation: %v", err)
		}
		if len(all) != 1 || all[0].SpentAmount != 180 {
			t.Fatalf("canceled lines = %+v, want the 180 line", all)
		}
		e, err := tx.ExpenseLine(ctx, all[0].ExpenseLineID)
		if err != nil {
			t.Fatalf("ExpenseLine: %v", err)
		}
		if e.Amount != 200 {
			t.Errorf("expense amount = %d, want 200", e.Amount)
		}
		return nil
	})
}
