// Package workflow implements the operator-facing procedures that mutate
// the ledger: budget import and deactivation, issuers, request drafts,
// reconciliation drafts and cancellations. Every commit runs in one store
// transaction that ends with a balance rebuild.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/theirongolddev/ptab/internal/ledger"
	"github.com/theirongolddev/ptab/internal/metrics"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

// Service runs workflows against one store on behalf of one actor.
type Service struct {
	store   *store.Store
	actorID int64
}

// New returns a Service recording actorID in audit fields.
func New(s *store.Store, actorID int64) *Service {
	return &Service{store: s, actorID: actorID}
}

// Actor returns the id written to created_by and registered_by.
func (s *Service) Actor() int64 { return s.actorID }

// commit runs fn and a trailing recalculation in one transaction. Domain
// errors come back unchanged; anything else is wrapped in *model.TxError.
func (s *Service) commit(ctx context.Context, op string, fn func(*store.Tx) error) error {
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return ledger.Recalculate(ctx, tx)
	})
	metrics.WorkflowCommit(op, err)
	if err != nil {
		log.Printf("ptab workflow: %s failed: %v", op, err)
		return classify(op, err)
	}
	return nil
}

func classify(op string, err error) error {
	var (
		v  *model.ValidationError
		nf *model.NotFoundError
		ib *model.InsufficientBalanceError
	)
	switch {
	case errors.As(err, &v), errors.As(err, &nf), errors.As(err, &ib),
		errors.Is(err, model.ErrConflictingRegularisation),
		errors.Is(err, model.ErrInvalidTransition):
		return err
	}
	return &model.TxError{Op: op, Err: err}
}

// lookup maps a missing row to a *model.NotFoundError for entity.
func lookup(err error, entity string, id int64) error {
	if errors.Is(err, store.ErrNoRow) {
		return model.NotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("loading %s %d: %w", entity, id, err)
	}
	return nil
}

// Recalculate rebuilds the balance table outside any workflow.
func (s *Service) Recalculate(ctx context.Context) error {
	return s.commit(ctx, "recalculate", func(*store.Tx) error { return nil })
}

// Verify reports budget lines whose cached balance is stale.
func (s *Service) Verify(ctx context.Context) ([]ledger.Drift, error) {
	var drift []ledger.Drift
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		drift, err = ledger.Verify(ctx, tx)
		return err
	})
	return drift, err
}

// Balances lists active budget lines with their balance.
func (s *Service) Balances(ctx context.Context, f model.BalanceFilter) ([]model.BalanceRow, error) {
	var rows []model.BalanceRow
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		rows, err = tx.BalanceRows(ctx, f)
		return err
	})
	return rows, err
}

// SubRequests lists every sub-request with its committed total.
func (s *Service) SubRequests(ctx context.Context) ([]model.SubRequestRow, error) {
	var rows []model.SubRequestRow
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		rows, err = tx.SubRequestRows(ctx)
		return err
	})
	return rows, err
}

// Reconciliations lists every reconciliation with its regularised total.
func (s *Service) Reconciliations(ctx context.Context) ([]model.ReconciliationRow, error) {
	var rows []model.ReconciliationRow
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		rows, err = tx.ReconciliationRows(ctx)
		return err
	})
	return rows, err
}

// Dashboard returns the headline totals.
func (s *Service) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	var d model.DashboardStats
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		d, err = tx.Dashboard(ctx)
		return err
	})
	return d, err
}

// ActiveSubRequests lists selectable sub-requests. issuerID 0 and an empty
// kind match everything.
func (s *Service) ActiveSubRequests(ctx context.Context, issuerID int64, kind string) ([]model.SubRequest, error) {
	var subs []model.SubRequest
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		subs, err = tx.ActiveSubRequests(ctx, issuerID, kind)
		return err
	})
	return subs, err
}
