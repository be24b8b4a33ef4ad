package store

import (
	"context"

	"github.com/theirongolddev/ptab/internal/model"
)

// InsertReconciliation stores r and sets its ID and registration time.
func (t *Tx) InsertReconciliation(ctx context.Context, r *model.Reconciliation) error {
	if r.Status == "" {
		r.Status = model.StatusActive
	}
	now := t.timestamp()
	res, err := t.tx.ExecContext(ctx, `INSERT INTO reconciliation (request_id, kind, status, registered_by, registered_at)
		VALUES (?, ?, ?, ?, ?)`, r.RequestID, r.Kind, r.Status, r.RegisteredBy, now)
	if err != nil {
		return err
	}
	r.RegisteredAt = parseTime(now)
	r.ID, err = res.LastInsertId()
	return err
}

// Reconciliation returns one reconciliation regardless of status.
func (t *Tx) Reconciliation(ctx context.Context, id int64) (model.Reconciliation, error) {
	var r model.Reconciliation
	var registered string
	err := t.tx.QueryRowContext(ctx, `SELECT id, request_id, kind, status, registered_by, registered_at
		FROM reconciliation WHERE id = ?`, id).
		Scan(&r.ID, &r.RequestID, &r.Kind, &r.Status, &r.RegisteredBy, &registered)
	r.RegisteredAt = parseTime(registered)
	return r, noRow(err)
}

// SetReconciliationStatus changes the status of one reconciliation.
func (t *Tx) SetReconciliationStatus(ctx context.Context, id int64, status string) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE reconciliation SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "reconciliation", id)
}

// InsertRegularisationLine stores g and sets its ID.
func (t *Tx) InsertRegularisationLine(ctx context.Context, g *model.RegularisationLine) error {
	res, err := t.tx.ExecContext(ctx, `INSERT INTO regularisation_line (expense_line_id, reconciliation_id, spent_amount)
		VALUES (?, ?, ?)`, g.ExpenseLineID, g.ReconciliationID, g.SpentAmount)
	if err != nil {
		return err
	}
	g.ID, err = res.LastInsertId()
	return err
}

func (t *Tx) queryRegularisationLines(ctx context.Context, query string, args ...any) ([]model.RegularisationLine, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var lines []model.RegularisationLine
	for rows.Next() {
		var g model.RegularisationLine
		if err := rows.Scan(&g.ID, &g.ExpenseLineID, &g.ReconciliationID, &g.SpentAmount); err != nil {
			return nil, err
		}
		lines = append(lines, g)
	}
	return lines, rows.Err()
}

// ActiveRegularisationLines returns the regularisation lines of every active
// reconciliation, ordered by id.
func (t *Tx) ActiveRegularisationLines(ctx context.Context) ([]model.RegularisationLine, error) {
	return t.queryRegularisationLines(ctx, `SELECT g.id, g.expense_line_id, g.reconciliation_id, g.spent_amount
		FROM regularisation_line g
		JOIN reconciliation r ON r.id = g.reconciliation_id
		WHERE r.status = ?
		ORDER BY g.id`, model.StatusActive)
}

// RegularisationLinesByReconciliation returns the lines of one reconciliation.
func (t *Tx) RegularisationLinesByReconciliation(ctx context.Context, reconciliationID int64) ([]model.RegularisationLine, error) {
	return t.queryRegularisationLines(ctx, `SELECT id, expense_line_id, reconciliation_id, spent_amount
		FROM regularisation_line WHERE reconciliation_id = ? ORDER BY id`, reconciliationID)
}

// ActiveRegularisationsOf returns the regularisation lines of active
// reconciliations that reference one expense line.
func (t *Tx) ActiveRegularisationsOf(ctx context.Context, expenseLineID int64) ([]model.RegularisationLine, error) {
	return t.queryRegularisationLines(ctx, `SELECT g.id, g.expense_line_id, g.reconciliation_id, g.spent_amount
		FROM regularisation_line g
		JOIN reconciliation r ON r.id = g.reconciliation_id
		WHERE g.expense_line_id = ? AND r.status = ?
		ORDER BY g.id`, expenseLineID, model.StatusActive)
}
