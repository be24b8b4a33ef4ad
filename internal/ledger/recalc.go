package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/theirongolddev/ptab/internal/metrics"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

// ErrAmountOverflow is returned when the effective amounts of a budget line
// no longer fit in an int64.
var ErrAmountOverflow = errors.New("committed amount overflows")

// Compute returns baseline minus the effective amounts of the given expense
// lines. It is the pure form of the balance rule and touches no store.
func Compute(line model.BudgetLine, expenses []model.ExpenseLine, regs Regularisations, activeSubRequests store.IDSet) (int64, error) {
	var committed int64
	for _, e := range expenses {
		amount, err := EffectiveAmount(e, regs, activeSubRequests)
		if err != nil {
			return 0, err
		}
		if amount > math.MaxInt64-committed {
			return 0, fmt.Errorf("budget line %d at expense line %d: %w", line.ID, e.ID, ErrAmountOverflow)
		}
		committed += amount
	}
	if line.BaselineAmount < math.MinInt64+committed {
		return 0, fmt.Errorf("budget line %d: %w", line.ID, ErrAmountOverflow)
	}
	return line.BaselineAmount - committed, nil
}

// snapshot is the input of one rebuild, read inside the caller's transaction.
type snapshot struct {
	lines      []model.BudgetLine
	regs       Regularisations
	activeSubs store.IDSet
}

func loadSnapshot(ctx context.Context, tx *store.Tx) (snapshot, error) {
	var s snapshot
	var err error
	if s.lines, err = tx.ActiveBudgetLines(ctx); err != nil {
		return s, fmt.Errorf("loading budget lines: %w", err)
	}
	if len(s.lines) == 0 {
		return s, nil
	}

	regLines, err := tx.ActiveRegularisationLines(ctx)
	if err != nil {
		return s, fmt.Errorf("loading regularisations: %w", err)
	}
	s.regs = IndexRegularisations(regLines)

	if s.activeSubs, err = tx.ActiveSubRequestIDs(ctx); err != nil {
		return s, fmt.Errorf("loading sub-requests: %w", err)
	}
	return s, nil
}

func (s snapshot) balance(ctx context.Context, tx *store.Tx, line model.BudgetLine) (int64, error) {
	expenses, err := tx.ExpenseLinesByBudgetLine(ctx, line.ID)
	if err != nil {
		return 0, fmt.Errorf("loading expenses of budget line %d: %w", line.ID, err)
	}
	return Compute(line, expenses, s.regs, s.activeSubs)
}

// Recalculate rebuilds the balance table for every active budget line. It
// must run in the same transaction as the mutation that triggered it; on
// error the caller's rollback restores the previous table.
func Recalculate(ctx context.Context, tx *store.Tx) (err error) {
	start := time.Now()
	var written int
	defer func() { metrics.ObserveRecalc(start, written, err) }()

	s, err := loadSnapshot(ctx, tx)
	if err != nil {
		return err
	}
	if err := tx.DeleteAllBalances(ctx); err != nil {
		return fmt.Errorf("clearing balances: %w", err)
	}

	for _, line := range s.lines {
		amount, err := s.balance(ctx, tx, line)
		if err != nil {
			return err
		}
		if err := tx.InsertBalance(ctx, model.Balance{BudgetLineID: line.ID, Amount: amount}); err != nil {
			return fmt.Errorf("writing balance of budget line %d: %w", line.ID, err)
		}
		written++
	}
	return nil
}

// Drift is a budget line whose cached balance disagrees with a fresh
// computation. Cached is zero and Missing is true when no row exists.
type Drift struct {
	BudgetLineID int64 `json:"budget_line_id"`
	ActivityCode int64 `json:"activity_code"`
	Cached       int64 `json:"cached"`
	Missing      bool  `json:"missing"`
	Expected     int64 `json:"expected"`
}

// Verify recomputes every active balance without writing and reports the
// lines whose cached row is missing or wrong. Rows for inactive lines are
// reported with Expected 0.
func Verify(ctx context.Context, tx *store.Tx) ([]Drift, error) {
	s, err := loadSnapshot(ctx, tx)
	if err != nil {
		return nil, err
	}
	cached, err := tx.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading balances: %w", err)
	}

	var drift []Drift
	seen := make(store.IDSet, len(s.lines))
	for _, line := range s.lines {
		seen[line.ID] = struct{}{}
		want, err := s.balance(ctx, tx, line)
		if err != nil {
			return nil, err
		}
		got, ok := cached[line.ID]
		if !ok || got != want {
			drift = append(drift, Drift{
				BudgetLineID: line.ID,
				ActivityCode: line.ActivityCode,
				Cached:       got,
				Missing:      !ok,
				Expected:     want,
			})
		}
	}
	for id, got := range cached {
		if !seen.Has(id) {
			drift = append(drift, Drift{BudgetLineID: id, Cached: got})
		}
	}
	return drift, nil
}
