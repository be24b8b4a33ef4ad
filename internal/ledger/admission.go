package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/theirongolddev/ptab/internal/metrics"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

// Available returns the spendable amount of an active budget line: its
// cached balance, or the baseline when no balance row exists yet.
func Available(ctx context.Context, tx *store.Tx, budgetLineID int64) (int64, error) {
	line, err := tx.BudgetLine(ctx, budgetLineID)
	if errors.Is(err, store.ErrNoRow) {
		return 0, model.NotFound("budget line", budgetLineID)
	}
	if err != nil {
		return 0, fmt.Errorf("loading budget line %d: %w", budgetLineID, err)
	}
	if !line.Active() {
		return 0, model.NotFound("budget line", budgetLineID)
	}

	amount, ok, err := tx.Balance(ctx, budgetLineID)
	if err != nil {
		return 0, fmt.Errorf("loading balance of budget line %d: %w", budgetLineID, err)
	}
	if !ok {
		return line.BaselineAmount, nil
	}
	return amount, nil
}

// CheckCoverage reports whether requested fits in the available balance of
// a budget line once queued, the amount already admitted against it but not
// yet committed, is set aside. It reads only; the caller's commit
// recalculates.
func CheckCoverage(ctx context.Context, tx *store.Tx, budgetLineID, queued, requested int64) error {
	if requested < 0 || requested > model.MaxAmount {
		return model.Invalid("amount", "out of range")
	}
	available, err := Available(ctx, tx, budgetLineID)
	if err != nil {
		return err
	}
	available -= queued
	if requested > available {
		metrics.AdmissionRejected()
		return &model.InsufficientBalanceError{
			BudgetLineID: budgetLineID,
			Available:    available,
			Requested:    requested,
		}
	}
	return nil
}
