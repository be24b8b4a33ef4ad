package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/theirongolddev/ptab/internal/model"
)

// BalanceRows lists active budget lines with their cached balance. A line
// without a balance row shows its baseline.
func (t *Tx) BalanceRows(ctx context.Context, f model.BalanceFilter) ([]model.BalanceRow, error) {
	query := `SELECT l.id, l.year, l.project, l.project_code, l.item_code, l.activity_code,
		l.baseline_amount, COALESCE(b.amount, l.baseline_amount)
		FROM budget_line l
		LEFT JOIN balance b ON b.budget_line_id = l.id
		WHERE l.status = ?`
	args := []any{model.StatusActive}
	if f.Year != 0 {
		query += " AND l.year = ?"
		args = append(args, f.Year)
	}
	if f.Project != "" {
		query += " AND l.project = ?"
		args = append(args, f.Project)
	}

	rows, err := t.tx.QueryContext(ctx, query+" ORDER BY l.year, l.project, l.activity_code", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.BalanceRow
	for rows.Next() {
		var r model.BalanceRow
		if err := rows.Scan(&r.BudgetLineID, &r.Year, &r.Project, &r.ProjectCode, &r.ItemCode,
			&r.ActivityCode, &r.BaselineAmount, &r.Balance); err != nil {
			return nil, err
		}
		if f.ActivityCode != "" && !strings.Contains(strconv.FormatInt(r.ActivityCode, 10), f.ActivityCode) {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SubRequestRows lists every sub-request, newest first, with its committed total.
func (t *Tx) SubRequestRows(ctx context.Context) ([]model.SubRequestRow, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT s.id, r.id, i.id, i.name_ref, r.request_type,
		s.kind, s.object, s.status, COALESCE(SUM(e.amount), 0), s.created_at
		FROM sub_request s
		JOIN request r ON r.id = s.request_id
		JOIN issuer i ON i.id = r.issuer_id
		LEFT JOIN expense_line e ON e.sub_request_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.SubRequestRow
	for rows.Next() {
		var r model.SubRequestRow
		var created string
		if err := rows.Scan(&r.SubRequestID, &r.RequestID, &r.IssuerID, &r.IssuerRef, &r.RequestType,
			&r.Kind, &r.Object, &r.Status, &r.TotalAmount, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReconciliationRows lists every reconciliation, newest first, with the
// total of its regularised amounts.
func (t *Tx) ReconciliationRows(ctx context.Context) ([]model.ReconciliationRow, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT c.id, c.request_id, COALESCE(i.name_ref, ''), c.kind, c.status,
		COALESCE((SELECT SUM(g.spent_amount) FROM regularisation_line g WHERE g.reconciliation_id = c.id), 0),
		c.registered_at
		FROM reconciliation c
		JOIN request r ON r.id = c.request_id
		LEFT JOIN issuer i ON i.id = r.issuer_id
		ORDER BY c.registered_at DESC, c.id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ReconciliationRow
	for rows.Next() {
		var r model.ReconciliationRow
		var registered string
		if err := rows.Scan(&r.ReconciliationID, &r.RequestID, &r.IssuerRef, &r.Kind, &r.Status,
			&r.TotalSpent, &registered); err != nil {
			return nil, err
		}
		r.RegisteredAt = parseTime(registered)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Dashboard computes the headline totals over active budget lines.
// Committed counts original amounts of active sub-requests; regularised
// counts spent amounts of active reconciliations.
func (t *Tx) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	var d model.DashboardStats

	rows, err := t.tx.QueryContext(ctx, `SELECT l.project, SUM(l.baseline_amount),
		COALESCE(SUM((SELECT SUM(e.amount) FROM expense_line e
			JOIN sub_request s ON s.id = e.sub_request_id
			WHERE e.budget_line_id = l.id AND s.status = 'active')), 0),
		SUM(COALESCE(b.amount, l.baseline_amount))
		FROM budget_line l
		LEFT JOIN balance b ON b.budget_line_id = l.id
		WHERE l.status = 'active'
		GROUP BY l.project
		ORDER BY l.project`)
	if err != nil {
		return d, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p model.ProjectStats
		var remaining int64
		if err := rows.Scan(&p.Project, &p.Budget, &p.Committed, &remaining); err != nil {
			return d, err
		}
		d.TotalBudget += p.Budget
		d.TotalCommitted += p.Committed
		d.TotalRemaining += remaining
		d.ByProject = append(d.ByProject, p)
	}
	if err := rows.Err(); err != nil {
		return d, err
	}

	err = t.tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(g.spent_amount), 0)
		FROM regularisation_line g
		JOIN reconciliation r ON r.id = g.reconciliation_id
		WHERE r.status = 'active'`).Scan(&d.TotalRegularised)
	return d, err
}
