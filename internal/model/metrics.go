package model

import "time"

// BalanceRow is one line of the balance listing.
type BalanceRow struct {
	BudgetLineID   int64  `json:"budget_line_id"`
	Year           int    `json:"year"`
	Project        string `json:"project"`
	ProjectCode    string `json:"project_code"`
	ItemCode       string `json:"item_code"`
	ActivityCode   int64  `json:"activity_code"`
	BaselineAmount int64  `json:"baseline_amount"`
	Balance        int64  `json:"balance"`
}

// Negative reports an overdrawn line.
func (r BalanceRow) Negative() bool { return r.Balance < 0 }

// SubRequestRow is one line of the request listing.
type SubRequestRow struct {
	SubRequestID int64     `json:"sub_request_id"`
	RequestID    int64     `json:"request_id"`
	IssuerID     int64     `json:"issuer_id"`
	IssuerRef    string    `json:"issuer_ref"`
	RequestType  string    `json:"request_type"`
	Kind         string    `json:"kind"`
	Object       string    `json:"object"`
	Status       string    `json:"status"`
	TotalAmount  int64     `json:"total_amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReconciliationRow is one line of the reconciliation listing.
type ReconciliationRow struct {
	ReconciliationID int64     `json:"reconciliation_id"`
	RequestID        int64     `json:"request_id"`
	IssuerRef        string    `json:"issuer_ref"`
	Kind             string    `json:"kind"`
	Status           string    `json:"status"`
	TotalSpent       int64     `json:"total_spent"`
	RegisteredAt     time.Time `json:"registered_at"`
}

// DashboardStats holds the top-level totals across active budget lines.
type DashboardStats struct {
	TotalBudget      int64          `json:"total_budget"`
	TotalCommitted   int64          `json:"total_committed"`
	TotalRegularised int64          `json:"total_regularised"`
	TotalRemaining   int64          `json:"total_remaining"`
	ByProject        []ProjectStats `json:"by_project"`
}

// ProjectStats holds committed vs baseline amounts for one project.
type ProjectStats struct {
	Project   string `json:"project"`
	Budget    int64  `json:"budget"`
	Committed int64  `json:"committed"`
}

// BalanceFilter narrows the balance listing. Zero values match everything.
type BalanceFilter struct {
	Year         int
	Project      string
	ActivityCode string // substring match on the decimal code
}
