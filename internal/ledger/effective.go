// Package ledger keeps the per-budget-line balance table consistent with
// the commitments and regularisations recorded against it.
package ledger

import (
	"fmt"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

// Regularisations indexes the regularisation lines of active reconciliations
// by the expense line they override.
type Regularisations map[int64][]model.RegularisationLine

// IndexRegularisations groups lines by expense line id. Lines are expected to
// belong to active reconciliations only.
func IndexRegularisations(lines []model.RegularisationLine) Regularisations {
	idx := make(Regularisations, len(lines))
	for _, g := range lines {
		idx[g.ExpenseLineID] = append(idx[g.ExpenseLineID], g)
	}
	return idx
}

// EffectiveAmount returns the amount an expense line currently counts against
// its budget line: the spent amount of an active regularisation if one
// exists, the original amount while the sub-request is active, zero otherwise.
func EffectiveAmount(e model.ExpenseLine, regs Regularisations, activeSubRequests store.IDSet) (int64, error) {
	switch applicable := regs[e.ID]; {
	case len(applicable) > 1:
		return 0, fmt.Errorf("expense line %d (reconciliations %d and %d): %w",
			e.ID, applicable[0].ReconciliationID, applicable[1].ReconciliationID, model.ErrConflictingRegularisation)
	case len(applicable) == 1:
		return applicable[0].SpentAmount, nil
	}
	if activeSubRequests.Has(e.SubRequestID) {
		return e.Amount, nil
	}
	return 0, nil
}
