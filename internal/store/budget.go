package store

import (
	"context"
	"database/sql"

	"github.com/theirongolddev/ptab/internal/model"
)

const budgetLineCols = `id, year, project, activities, project_code, result, item_code,
	activity_code, baseline_amount, status`

func scanBudgetLine(row interface{ Scan(...any) error }) (model.BudgetLine, error) {
	var b model.BudgetLine
	err := row.Scan(&b.ID, &b.Year, &b.Project, &b.Activities, &b.ProjectCode, &b.Result,
		&b.ItemCode, &b.ActivityCode, &b.BaselineAmount, &b.Status)
	return b, err
}

func (t *Tx) queryBudgetLines(ctx context.Context, query string, args ...any) ([]model.BudgetLine, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var lines []model.BudgetLine
	for rows.Next() {
		b, err := scanBudgetLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, b)
	}
	return lines, rows.Err()
}

// InsertBudgetLine stores b and sets its ID.
func (t *Tx) InsertBudgetLine(ctx context.Context, b *model.BudgetLine) error {
	if b.Status == "" {
		b.Status = model.StatusActive
	}
	res, err := t.tx.ExecContext(ctx, `INSERT INTO budget_line
		(year, project, activities, project_code, result, item_code, activity_code, baseline_amount, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Year, b.Project, b.Activities, b.ProjectCode, b.Result, b.ItemCode,
		b.ActivityCode, b.BaselineAmount, b.Status,
	)
	if err != nil {
		return err
	}
	b.ID, err = res.LastInsertId()
	return err
}

// BudgetLine returns the line with the given id regardless of status.
func (t *Tx) BudgetLine(ctx context.Context, id int64) (model.BudgetLine, error) {
	b, err := scanBudgetLine(t.tx.QueryRowContext(ctx,
		"SELECT "+budgetLineCols+" FROM budget_line WHERE id = ?", id))
	return b, noRow(err)
}

// BudgetLineByActivityCode returns the line carrying the given activity code.
func (t *Tx) BudgetLineByActivityCode(ctx context.Context, code int64) (model.BudgetLine, error) {
	b, err := scanBudgetLine(t.tx.QueryRowContext(ctx,
		"SELECT "+budgetLineCols+" FROM budget_line WHERE activity_code = ?", code))
	return b, noRow(err)
}

// ActiveBudgetLines returns every active line ordered by id.
func (t *Tx) ActiveBudgetLines(ctx context.Context) ([]model.BudgetLine, error) {
	return t.queryBudgetLines(ctx,
		"SELECT "+budgetLineCols+" FROM budget_line WHERE status = ? ORDER BY id", model.StatusActive)
}

// ActiveBudgetLinesFor returns the active lines of one year and project.
func (t *Tx) ActiveBudgetLinesFor(ctx context.Context, year int, project string) ([]model.BudgetLine, error) {
	return t.queryBudgetLines(ctx,
		"SELECT "+budgetLineCols+" FROM budget_line WHERE status = ? AND year = ? AND project = ? ORDER BY id",
		model.StatusActive, year, project)
}

// SetBudgetLineStatus changes the status of one line.
func (t *Tx) SetBudgetLineStatus(ctx context.Context, id int64, status string) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE budget_line SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "budget line", id)
}

// DeleteAllBalances empties the derived balance table.
func (t *Tx) DeleteAllBalances(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM balance")
	return err
}

// InsertBalance stores the balance of one budget line.
func (t *Tx) InsertBalance(ctx context.Context, b model.Balance) error {
	_, err := t.tx.ExecContext(ctx, "INSERT INTO balance (budget_line_id, amount) VALUES (?, ?)",
		b.BudgetLineID, b.Amount)
	return err
}

// Balance returns the cached balance of a budget line. ok is false when no
// row exists yet.
func (t *Tx) Balance(ctx context.Context, budgetLineID int64) (amount int64, ok bool, err error) {
	err = t.tx.QueryRowContext(ctx, "SELECT amount FROM balance WHERE budget_line_id = ?", budgetLineID).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return amount, true, nil
}

// Balances returns every cached balance keyed by budget line id.
func (t *Tx) Balances(ctx context.Context) (map[int64]int64, error) {
	rows, err := t.tx.QueryContext(ctx, "SELECT budget_line_id, amount FROM balance")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[int64]int64)
	for rows.Next() {
		var id, amount int64
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, err
		}
		result[id] = amount
	}
	return result, rows.Err()
}

// InsertIssuer stores i and sets its ID and creation time.
func (t *Tx) InsertIssuer(ctx context.Context, i *model.Issuer) error {
	if i.Status == "" {
		i.Status = model.StatusActive
	}
	now := t.timestamp()
	res, err := t.tx.ExecContext(ctx, `INSERT INTO issuer (name_ref, department, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`, i.NameRef, i.Department, i.Status, i.CreatedBy, now)
	if err != nil {
		return err
	}
	i.CreatedAt = parseTime(now)
	i.ID, err = res.LastInsertId()
	return err
}

// Issuer returns one issuer regardless of status.
func (t *Tx) Issuer(ctx context.Context, id int64) (model.Issuer, error) {
	var i model.Issuer
	var created string
	err := t.tx.QueryRowContext(ctx, `SELECT id, name_ref, department, status, created_by, created_at
		FROM issuer WHERE id = ?`, id).
		Scan(&i.ID, &i.NameRef, &i.Department, &i.Status, &i.CreatedBy, &created)
	i.CreatedAt = parseTime(created)
	return i, noRow(err)
}

// Issuers returns issuers ordered by id; activeOnly drops inactive ones.
func (t *Tx) Issuers(ctx context.Context, activeOnly bool) ([]model.Issuer, error) {
	query := "SELECT id, name_ref, department, status, created_by, created_at FROM issuer"
	var args []any
	if activeOnly {
		query += " WHERE status = ?"
		args = append(args, model.StatusActive)
	}
	rows, err := t.tx.QueryContext(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var issuers []model.Issuer
	for rows.Next() {
		var i model.Issuer
		var created string
		if err := rows.Scan(&i.ID, &i.NameRef, &i.Department, &i.Status, &i.CreatedBy, &created); err != nil {
			return nil, err
		}
		i.CreatedAt = parseTime(created)
		issuers = append(issuers, i)
	}
	return issuers, rows.Err()
}

// SetIssuerStatus changes the status of one issuer.
func (t *Tx) SetIssuerStatus(ctx context.Context, id int64, status string) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE issuer SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "issuer", id)
}
