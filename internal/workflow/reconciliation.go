package workflow

import (
	"context"
	"fmt"
	"log"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

// SpentLine pairs an expense line with the amount actually spent on it.
type SpentLine struct {
	ExpenseLineID int64 `json:"expense_line_id"`
	BudgetLineID  int64 `json:"budget_line_id"`
	Original      int64 `json:"original"`
	Spent         int64 `json:"spent"`
}

// ReconciliationDraft walks an operator from choosing a sub-request to
// recording spent amounts. Nothing is stored until Commit.
type ReconciliationDraft struct {
	svc *Service

	State        State  `json:"state"`
	Kind         string `json:"kind,omitempty"`
	IssuerID     int64  `json:"issuer_id,omitempty"`
	SubRequestID int64  `json:"sub_request_id,omitempty"`
	RequestID    int64  `json:"request_id,omitempty"`

	Lines  []SpentLine          `json:"lines"`
	Result model.Reconciliation `json:"result"`
	Err    error                `json:"-"`
}

// NewReconciliation starts a draft in the Selecting state.
func (s *Service) NewReconciliation() *ReconciliationDraft {
	return &ReconciliationDraft{svc: s, State: Selecting}
}

// Select fixes kind, issuer and sub-request and loads the sub-request's
// expense lines with a zero spent amount. On error the draft stays in
// Selecting with Err set.
func (d *ReconciliationDraft) Select(ctx context.Context, kind string, issuerID, subRequestID int64) error {
	if err := d.State.expect(Selecting, "select"); err != nil {
		return err
	}
	d.Err = d.load(ctx, kind, issuerID, subRequestID)
	return d.Err
}

func (d *ReconciliationDraft) load(ctx context.Context, kind string, issuerID, subRequestID int64) error {
	switch {
	case !model.ValidReconciliationKind(kind):
		return model.Invalid("kind", fmt.Sprintf("%q is not one of %v", kind, model.ReconciliationKinds))
	case issuerID <= 0:
		return model.Invalid("issuer", "required")
	case subRequestID <= 0:
		return model.Invalid("sub_request", "required")
	}

	var (
		requestID int64
		lines     []SpentLine
	)
	err := d.svc.store.View(ctx, func(tx *store.Tx) error {
		sub, req, err := issuerSubRequest(ctx, tx, issuerID, subRequestID)
		if err != nil {
			return err
		}
		requestID = req.ID
		expenses, err := tx.ExpenseLinesBySubRequest(ctx, sub.ID)
		if err != nil {
			return err
		}
		for _, e := range expenses {
			lines = append(lines, SpentLine{ExpenseLineID: e.ID, BudgetLineID: e.BudgetLineID, Original: e.Amount})
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.Kind, d.IssuerID, d.SubRequestID, d.RequestID = kind, issuerID, subRequestID, requestID
	d.Lines = lines
	d.State = LineEntry
	return nil
}

// issuerSubRequest loads an active sub-request that belongs to one of the
// issuer's requests.
func issuerSubRequest(ctx context.Context, tx *store.Tx, issuerID, subRequestID int64) (model.SubRequest, model.Request, error) {
	sub, err := tx.SubRequest(ctx, subRequestID)
	if err := lookup(err, "sub-request", subRequestID); err != nil {
		return sub, model.Request{}, err
	}
	if sub.Status != model.StatusActive {
		return sub, model.Request{}, model.NotFound("active sub-request", subRequestID)
	}
	req, err := tx.Request(ctx, sub.RequestID)
	if err := lookup(err, "request", sub.RequestID); err != nil {
		return sub, req, err
	}
	if req.IssuerID != issuerID {
		return sub, req, &model.NotFoundError{
			Entity: "sub-request",
			Key:    fmt.Sprintf("#%d for issuer #%d", subRequestID, issuerID),
		}
	}
	return sub, req, nil
}

// SetSpent records the amount spent on the i-th line.
func (d *ReconciliationDraft) SetSpent(i int, amount int64) error {
	if err := d.State.expect(LineEntry, "set spent amount"); err != nil {
		return err
	}
	if i < 0 || i >= len(d.Lines) {
		return model.Invalid("line", fmt.Sprintf("no line %d", i))
	}
	if amount < 0 {
		return model.Invalid("spent_amount", "must not be negative")
	}
	if amount > model.MaxAmount {
		return model.Invalid("spent_amount", "out of range")
	}
	d.Lines[i].Spent = amount
	return nil
}

// Back returns to Selecting and drops the loaded lines.
func (d *ReconciliationDraft) Back() error {
	if err := d.State.expect(LineEntry, "back"); err != nil {
		return err
	}
	d.State = Selecting
	d.Lines = nil
	d.Err = nil
	return nil
}

// Abandon discards the draft. Nothing was stored.
func (d *ReconciliationDraft) Abandon() {
	if !d.State.Done() {
		d.State = Abandoned
	}
}

// Commit stores the reconciliation with one regularisation line per line
// with a positive spent amount, then rebuilds balances, in one transaction.
// A line already regularised by another active reconciliation is refused.
// On error the draft stays in LineEntry with Err set.
func (d *ReconciliationDraft) Commit(ctx context.Context) (model.Reconciliation, error) {
	if err := d.State.expect(LineEntry, "commit reconciliation"); err != nil {
		return model.Reconciliation{}, err
	}
	var spent []SpentLine
	for _, l := range d.Lines {
		if l.Spent > 0 {
			spent = append(spent, l)
		}
	}
	if len(spent) == 0 {
		d.Err = model.Invalid("spent_amount", "enter at least one spent amount above zero")
		return model.Reconciliation{}, d.Err
	}

	rec := model.Reconciliation{Kind: d.Kind, RegisteredBy: d.svc.actorID}
	d.Err = d.svc.commit(ctx, "commit reconciliation", func(tx *store.Tx) error {
		_, req, err := issuerSubRequest(ctx, tx, d.IssuerID, d.SubRequestID)
		if err != nil {
			return err
		}
		rec.RequestID = req.ID
		if err := tx.InsertReconciliation(ctx, &rec); err != nil {
			return fmt.Errorf("inserting reconciliation: %w", err)
		}
		for _, l := range spent {
			prior, err := tx.ActiveRegularisationsOf(ctx, l.ExpenseLineID)
			if err != nil {
				return err
			}
			if len(prior) > 0 {
				return fmt.Errorf("expense line %d already regularised by reconciliation %d: %w",
					l.ExpenseLineID, prior[0].ReconciliationID, model.ErrConflictingRegularisation)
			}
			g := model.RegularisationLine{ExpenseLineID: l.ExpenseLineID, ReconciliationID: rec.ID, SpentAmount: l.Spent}
			if err := tx.InsertRegularisationLine(ctx, &g); err != nil {
				return fmt.Errorf("inserting regularisation line: %w", err)
			}
		}
		return nil
	})
	if d.Err != nil {
		return model.Reconciliation{}, d.Err
	}

	d.State = Committed
	d.Result = rec
	log.Printf("ptab workflow: %s reconciliation %d on request %d with %d lines",
		rec.Kind, rec.ID, rec.RequestID, len(spent))
	return rec, nil
}

// CancelReconciliation marks an active reconciliation canceled and rebuilds
// balances, reverting its lines to their original or zero amount.
func (s *Service) CancelReconciliation(ctx context.Context, id int64) error {
	err := s.commit(ctx, "cancel reconciliation", func(tx *store.Tx) error {
		rec, err := tx.Reconciliation(ctx, id)
		if err := lookup(err, "reconciliation", id); err != nil {
			return err
		}
		if rec.Status != model.StatusActive {
			return model.NotFound("active reconciliation", id)
		}
		return tx.SetReconciliationStatus(ctx, id, model.StatusCanceled)
	})
	if err != nil {
		return err
	}
	log.Printf("ptab workflow: canceled reconciliation %d", id)
	return nil
}

// ReconciliationDetail returns one reconciliation, whatever its status, with
// each regularisation line paired with the expense line it overrides.
func (s *Service) ReconciliationDetail(ctx context.Context, id int64) (model.ReconciliationDetail, error) {
	var detail model.ReconciliationDetail
	err := s.store.View(ctx, func(tx *store.Tx) error {
		rec, err := tx.Reconciliation(ctx, id)
		if err := lookup(err, "reconciliation", id); err != nil {
			return err
		}
		detail.Reconciliation = rec

		regs, err := tx.RegularisationLinesByReconciliation(ctx, id)
		if err != nil {
			return fmt.Errorf("loading lines of reconciliation %d: %w", id, err)
		}
		detail.Lines = make([]model.RegularisedLine, 0, len(regs))
		for _, g := range regs {
			e, err := tx.ExpenseLine(ctx, g.ExpenseLineID)
			if err := lookup(err, "expense line", g.ExpenseLineID); err != nil {
				return err
			}
			detail.Lines = append(detail.Lines, model.RegularisedLine{
				RegularisationLineID: g.ID,
				ExpenseLineID:        e.ID,
				BudgetLineID:         e.BudgetLineID,
				Original:             e.Amount,
				Spent:                g.SpentAmount,
			})
		}
		return nil
	})
	return detail, err
}
