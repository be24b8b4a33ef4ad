// Package model defines the entity types shared by the ptab store, the
// balance engine and the workflows built on top of them.
package model

// Status values shared by several entities.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusCanceled  = "canceled"
	StatusCompleted = "completed"
)

// MaxAmount is the largest monetary amount accepted anywhere: budget
// baselines, expense lines and spent amounts.
const MaxAmount int64 = 1<<53 - 1

// BudgetLine is one funded activity (a PTAB line). Only Status may change
// after creation.
type BudgetLine struct {
	ID             int64  `json:"id"`
	Year           int    `json:"year"`
	Project        string `json:"project"`
	Activities     string `json:"activities"`
	ProjectCode    string `json:"project_code"`
	Result         string `json:"result"`
	ItemCode       string `json:"item_code"`
	ActivityCode   int64  `json:"activity_code"`
	BaselineAmount int64  `json:"baseline_amount"`
	Status         string `json:"status"`
}

// Active reports whether the line still takes part in balance computation.
func (b BudgetLine) Active() bool { return b.Status == StatusActive }

// Balance is the derived remaining amount for one active budget line.
type Balance struct {
	BudgetLineID int64 `json:"budget_line_id"`
	Amount       int64 `json:"amount"`
}

// BudgetRow is an already-validated import row. Year and project are supplied
// by the operator, not by the row.
type BudgetRow struct {
	Activities   string `json:"activities"`
	ProjectCode  string `json:"project_code"`
	Result       string `json:"result"`
	ItemCode     string `json:"item_code"`
	ActivityCode int64  `json:"activity_code"`
	Amount       int64  `json:"amount"`
}
