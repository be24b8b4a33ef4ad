package store

import (
	"context"

	"github.com/theirongolddev/ptab/internal/model"
)

// InsertRequest stores r and sets its ID.
func (t *Tx) InsertRequest(ctx context.Context, r *model.Request) error {
	if r.Status == "" {
		r.Status = model.StatusActive
	}
	res, err := t.tx.ExecContext(ctx, "INSERT INTO request (issuer_id, request_type, status) VALUES (?, ?, ?)",
		r.IssuerID, r.Type, r.Status)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

// Request returns one request.
func (t *Tx) Request(ctx context.Context, id int64) (model.Request, error) {
	var r model.Request
	err := t.tx.QueryRowContext(ctx, "SELECT id, issuer_id, request_type, status FROM request WHERE id = ?", id).
		Scan(&r.ID, &r.IssuerID, &r.Type, &r.Status)
	return r, noRow(err)
}

const subRequestCols = "s.id, s.request_id, s.kind, s.object, s.status, s.created_by, s.created_at"

func scanSubRequest(row interface{ Scan(...any) error }) (model.SubRequest, error) {
	var s model.SubRequest
	var created string
	err := row.Scan(&s.ID, &s.RequestID, &s.Kind, &s.Object, &s.Status, &s.CreatedBy, &created)
	s.CreatedAt = parseTime(created)
	return s, err
}

// InsertSubRequest stores s and sets its ID and creation time.
func (t *Tx) InsertSubRequest(ctx context.Context, s *model.SubRequest) error {
	if s.Status == "" {
		s.Status = model.StatusActive
	}
	now := t.timestamp()
	res, err := t.tx.ExecContext(ctx, `INSERT INTO sub_request (request_id, kind, object, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, s.RequestID, s.Kind, s.Object, s.Status, s.CreatedBy, now)
	if err != nil {
		return err
	}
	s.CreatedAt = parseTime(now)
	s.ID, err = res.LastInsertId()
	return err
}

// SubRequest returns one sub-request regardless of status.
func (t *Tx) SubRequest(ctx context.Context, id int64) (model.SubRequest, error) {
	s, err := scanSubRequest(t.tx.QueryRowContext(ctx,
		"SELECT "+subRequestCols+" FROM sub_request s WHERE s.id = ?", id))
	return s, noRow(err)
}

// SetSubRequestStatus changes the status of one sub-request.
func (t *Tx) SetSubRequestStatus(ctx context.Context, id int64, status string) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE sub_request SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "sub-request", id)
}

// ActiveSubRequestIDs returns the ids of every active sub-request.
func (t *Tx) ActiveSubRequestIDs(ctx context.Context) (IDSet, error) {
	return t.queryIDs(ctx, "SELECT id FROM sub_request WHERE status = ?", model.StatusActive)
}

// ActiveSubRequests returns the active sub-requests of an issuer's requests.
// An empty kind matches both kinds; issuerID 0 matches every issuer.
func (t *Tx) ActiveSubRequests(ctx context.Context, issuerID int64, kind string) ([]model.SubRequest, error) {
	query := "SELECT " + subRequestCols + ` FROM sub_request s
		JOIN request r ON r.id = s.request_id
		WHERE s.status = ?`
	args := []any{model.StatusActive}
	if issuerID != 0 {
		query += " AND r.issuer_id = ?"
		args = append(args, issuerID)
	}
	if kind != "" {
		query += " AND s.kind = ?"
		args = append(args, kind)
	}

	rows, err := t.tx.QueryContext(ctx, query+" ORDER BY s.id", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var subs []model.SubRequest
	for rows.Next() {
		s, err := scanSubRequest(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// InsertExpenseLine stores e and sets its ID.
func (t *Tx) InsertExpenseLine(ctx context.Context, e *model.ExpenseLine) error {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO expense_line (budget_line_id, sub_request_id, amount) VALUES (?, ?, ?)",
		e.BudgetLineID, e.SubRequestID, e.Amount)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (t *Tx) queryExpenseLines(ctx context.Context, query string, args ...any) ([]model.ExpenseLine, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var lines []model.ExpenseLine
	for rows.Next() {
		var e model.ExpenseLine
		if err := rows.Scan(&e.ID, &e.BudgetLineID, &e.SubRequestID, &e.Amount); err != nil {
			return nil, err
		}
		lines = append(lines, e)
	}
	return lines, rows.Err()
}

// ExpenseLinesBySubRequest returns the lines committed by one sub-request.
func (t *Tx) ExpenseLinesBySubRequest(ctx context.Context, subRequestID int64) ([]model.ExpenseLine, error) {
	return t.queryExpenseLines(ctx,
		"SELECT id, budget_line_id, sub_request_id, amount FROM expense_line WHERE sub_request_id = ? ORDER BY id",
		subRequestID)
}

// ExpenseLinesByBudgetLine returns the lines committed against one budget line.
func (t *Tx) ExpenseLinesByBudgetLine(ctx context.Context, budgetLineID int64) ([]model.ExpenseLine, error) {
	return t.queryExpenseLines(ctx,
		"SELECT id, budget_line_id, sub_request_id, amount FROM expense_line WHERE budget_line_id = ? ORDER BY id",
		budgetLineID)
}

// ExpenseLine returns one expense line.
func (t *Tx) ExpenseLine(ctx context.Context, id int64) (model.ExpenseLine, error) {
	var e model.ExpenseLine
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, budget_line_id, sub_request_id, amount FROM expense_line WHERE id = ?", id).
		Scan(&e.ID, &e.BudgetLineID, &e.SubRequestID, &e.Amount)
	return e, noRow(err)
}

// InsertTravel stores the travel record of a sub-request.
func (t *Tx) InsertTravel(ctx context.Context, tr *model.Travel) error {
	res, err := t.tx.ExecContext(ctx, "INSERT INTO travel (sub_request_id, travel_type) VALUES (?, ?)",
		tr.SubRequestID, tr.TravelType)
	if err != nil {
		return err
	}
	tr.ID, err = res.LastInsertId()
	return err
}

// TravelBySubRequest returns the travel records of one sub-request.
func (t *Tx) TravelBySubRequest(ctx context.Context, subRequestID int64) ([]model.Travel, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT id, sub_request_id, travel_type FROM travel WHERE sub_request_id = ? ORDER BY id", subRequestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Travel
	for rows.Next() {
		var tr model.Travel
		if err := rows.Scan(&tr.ID, &tr.SubRequestID, &tr.TravelType); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
