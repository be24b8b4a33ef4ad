package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/theirongolddev/ptab/internal/ledger"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

// DraftLine is one expense line waiting in a request draft.
type DraftLine struct {
	BudgetLineID int64 `json:"budget_line_id"`
	ActivityCode int64 `json:"activity_code"`
	Amount       int64 `json:"amount"`
}

// RequestDraft collects the lines of a new or complementary sub-request.
// Nothing is stored until Commit.
type RequestDraft struct {
	svc *Service

	State  State  `json:"state"`
	Object string `json:"object"`

	// New request.
	IssuerID int64  `json:"issuer_id,omitempty"`
	Type     string `json:"request_type,omitempty"`

	// Complementary sub-request: the active initial sub-request it extends.
	ParentSubRequestID int64 `json:"parent_sub_request_id,omitempty"`

	Lines  []DraftLine      `json:"lines"`
	Result model.SubRequest `json:"result"`
	Err    error            `json:"-"`
}

// Complementary reports whether the draft extends an existing request.
func (d *RequestDraft) Complementary() bool { return d.ParentSubRequestID != 0 }

// NewRequest starts a draft for a new request with its initial sub-request.
func (s *Service) NewRequest(ctx context.Context, issuerID int64, requestType, object string) (*RequestDraft, error) {
	object = strings.TrimSpace(object)
	switch {
	case issuerID <= 0:
		return nil, model.Invalid("issuer", "required")
	case !model.ValidRequestType(requestType):
		return nil, model.Invalid("request_type", fmt.Sprintf("%q is not travel or purchase", requestType))
	case object == "":
		return nil, model.Invalid("object", "required")
	}
	err := s.store.View(ctx, func(tx *store.Tx) error { return activeIssuer(ctx, tx, issuerID) })
	if err != nil {
		return nil, err
	}
	return &RequestDraft{svc: s, State: Editing, IssuerID: issuerID, Type: requestType, Object: object}, nil
}

// ComplementRequest starts a draft for a complementary sub-request under the
// request owning parentSubRequestID, which must be an active initial one.
func (s *Service) ComplementRequest(ctx context.Context, parentSubRequestID int64, object string) (*RequestDraft, error) {
	object = strings.TrimSpace(object)
	switch {
	case parentSubRequestID <= 0:
		return nil, model.Invalid("sub_request", "required")
	case object == "":
		return nil, model.Invalid("object", "required")
	}
	err := s.store.View(ctx, func(tx *store.Tx) error {
		_, err := activeInitial(ctx, tx, parentSubRequestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &RequestDraft{svc: s, State: Editing, ParentSubRequestID: parentSubRequestID, Object: object}, nil
}

func activeInitial(ctx context.Context, tx *store.Tx, id int64) (model.SubRequest, error) {
	sub, err := tx.SubRequest(ctx, id)
	if err := lookup(err, "sub-request", id); err != nil {
		return sub, err
	}
	if sub.Kind != model.SubRequestInitial || sub.Status != model.StatusActive {
		return sub, model.NotFound("active initial sub-request", id)
	}
	return sub, nil
}

func activeLineByCode(ctx context.Context, tx *store.Tx, code int64) (model.BudgetLine, error) {
	b, err := tx.BudgetLineByActivityCode(ctx, code)
	if errors.Is(err, store.ErrNoRow) || (err == nil && !b.Active()) {
		return b, model.Invalid("activity_code", fmt.Sprintf("unknown activity code %d", code))
	}
	return b, err
}

// pending sums the draft's amounts already queued on one budget line.
func (d *RequestDraft) pending(budgetLineID int64) int64 {
	var sum int64
	for _, l := range d.Lines {
		if l.BudgetLineID == budgetLineID {
			sum += l.Amount
		}
	}
	return sum
}

// AddLine validates one expense line and checks that it, together with the
// lines already queued on the same budget line, fits the cached balance.
func (d *RequestDraft) AddLine(ctx context.Context, activityCode, amount int64) error {
	if err := d.State.expect(Editing, "add line"); err != nil {
		return err
	}
	if amount <= 0 {
		return model.Invalid("amount", "must be positive")
	}
	if amount > model.MaxAmount {
		return model.Invalid("amount", "out of range")
	}

	var line DraftLine
	err := d.svc.store.View(ctx, func(tx *store.Tx) error {
		b, err := activeLineByCode(ctx, tx, activityCode)
		if err != nil {
			return err
		}
		line = DraftLine{BudgetLineID: b.ID, ActivityCode: b.ActivityCode, Amount: amount}
		return ledger.CheckCoverage(ctx, tx, b.ID, d.pending(b.ID), amount)
	})
	if err != nil {
		return err
	}
	d.Lines = append(d.Lines, line)
	return nil
}

// RemoveLine drops the i-th queued line.
func (d *RequestDraft) RemoveLine(i int) error {
	if err := d.State.expect(Editing, "remove line"); err != nil {
		return err
	}
	if i < 0 || i >= len(d.Lines) {
		return model.Invalid("line", fmt.Sprintf("no line %d", i))
	}
	d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
	return nil
}

// Abandon discards the draft. Nothing was stored.
func (d *RequestDraft) Abandon() {
	if !d.State.Done() {
		d.State = Abandoned
	}
}

// Commit stores the request (new path), the sub-request, its travel advance
// record and its expense lines, then rebuilds balances, all in one
// transaction. On error the draft stays editable.
func (d *RequestDraft) Commit(ctx context.Context) (model.SubRequest, error) {
	if err := d.State.expect(Editing, "commit request"); err != nil {
		return model.SubRequest{}, err
	}
	if len(d.Lines) == 0 {
		d.Err = model.Invalid("lines", "add at least one expense line")
		return model.SubRequest{}, d.Err
	}

	op := "commit request"
	if d.Complementary() {
		op = "commit complementary request"
	}
	sub := model.SubRequest{Object: d.Object, CreatedBy: d.svc.actorID}
	d.Err = d.svc.commit(ctx, op, func(tx *store.Tx) error {
		if err := d.attach(ctx, tx, &sub); err != nil {
			return err
		}
		if err := tx.InsertSubRequest(ctx, &sub); err != nil {
			return fmt.Errorf("inserting sub-request: %w", err)
		}
		if !d.Complementary() && d.Type == model.RequestTravel {
			advance := model.Travel{SubRequestID: sub.ID, TravelType: model.TravelAdvance}
			if err := tx.InsertTravel(ctx, &advance); err != nil {
				return fmt.Errorf("inserting travel advance: %w", err)
			}
		}
		for _, l := range d.Lines {
			b, err := tx.BudgetLine(ctx, l.BudgetLineID)
			if err := lookup(err, "budget line", l.BudgetLineID); err != nil {
				return err
			}
			if !b.Active() {
				return model.NotFound("budget line", l.BudgetLineID)
			}
			e := model.ExpenseLine{BudgetLineID: l.BudgetLineID, SubRequestID: sub.ID, Amount: l.Amount}
			if err := tx.InsertExpenseLine(ctx, &e); err != nil {
				return fmt.Errorf("inserting expense line: %w", err)
			}
		}
		return nil
	})
	if d.Err != nil {
		return model.SubRequest{}, d.Err
	}

	d.State = Committed
	d.Result = sub
	log.Printf("ptab workflow: %s sub-request %d on request %d with %d lines",
		sub.Kind, sub.ID, sub.RequestID, len(d.Lines))
	return sub, nil
}

// attach resolves or creates the parent request and sets kind and request
// id on sub.
func (d *RequestDraft) attach(ctx context.Context, tx *store.Tx, sub *model.SubRequest) error {
	if d.Complementary() {
		parent, err := activeInitial(ctx, tx, d.ParentSubRequestID)
		if err != nil {
			return err
		}
		sub.Kind = model.SubRequestComplementary
		sub.RequestID = parent.RequestID
		return nil
	}

	if err := activeIssuer(ctx, tx, d.IssuerID); err != nil {
		return err
	}
	req := model.Request{IssuerID: d.IssuerID, Type: d.Type}
	if err := tx.InsertRequest(ctx, &req); err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	sub.Kind = model.SubRequestInitial
	sub.RequestID = req.ID
	return nil
}

// CancelSubRequest marks an active sub-request canceled and rebuilds
// balances. Regularisations already recorded against its lines still apply.
func (s *Service) CancelSubRequest(ctx context.Context, id int64) error {
	err := s.commit(ctx, "cancel sub-request", func(tx *store.Tx) error {
		sub, err := tx.SubRequest(ctx, id)
		if err := lookup(err, "sub-request", id); err != nil {
			return err
		}
		if sub.Status != model.StatusActive {
			return model.NotFound("active sub-request", id)
		}
		return tx.SetSubRequestStatus(ctx, id, model.StatusCanceled)
	})
	if err != nil {
		return err
	}
	log.Printf("ptab workflow: canceled sub-request %d", id)
	return nil
}
