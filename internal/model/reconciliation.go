package model

import "time"

// Reconciliation kinds.
const (
	ReconcileAdvance = "advance"
	ReconcileMomo    = "momo"
	ReconcileFacture = "facture"
)

// ReconciliationKinds lists the accepted kinds in display order.
var ReconciliationKinds = []string{ReconcileAdvance, ReconcileMomo, ReconcileFacture}

// Reconciliation is one reconciliation event against a request.
type Reconciliation struct {
	ID           int64     `json:"id"`
	RequestID    int64     `json:"request_id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	RegisteredBy int64     `json:"registered_by"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegularisationLine replaces an expense line's original amount with
// SpentAmount while its reconciliation is active.
type RegularisationLine struct {
	ID               int64 `json:"id"`
	ExpenseLineID    int64 `json:"expense_line_id"`
	ReconciliationID int64 `json:"reconciliation_id"`
	SpentAmount      int64 `json:"spent_amount"`
}

// RegularisedLine is one regularisation line next to the expense line it
// overrides.
type RegularisedLine struct {
	RegularisationLineID int64 `json:"regularisation_line_id"`
	ExpenseLineID        int64 `json:"expense_line_id"`
	BudgetLineID         int64 `json:"budget_line_id"`
	Original             int64 `json:"original"`
	Spent                int64 `json:"spent"`
}

// ReconciliationDetail is a reconciliation with its regularised lines.
type ReconciliationDetail struct {
	Reconciliation Reconciliation    `json:"reconciliation"`
	Lines          []RegularisedLine `json:"lines"`
}

// ValidReconciliationKind reports whether k is a known reconciliation kind.
func ValidReconciliationKind(k string) bool {
	for _, v := range ReconciliationKinds {
		if v == k {
			return true
		}
	}
	return false
}
