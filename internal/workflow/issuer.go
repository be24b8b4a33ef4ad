package workflow

import (
	"context"
	"strings"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

// AddIssuer registers an issuer under an opaque name reference.
func (s *Service) AddIssuer(ctx context.Context, nameRef, department string) (model.Issuer, error) {
	i := model.Issuer{
		NameRef:    strings.TrimSpace(nameRef),
		Department: strings.TrimSpace(department),
		CreatedBy:  s.actorID,
	}
	if i.NameRef == "" {
		return i, model.Invalid("name_ref", "required")
	}
	if i.Department == "" {
		return i, model.Invalid("department", "required")
	}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error { return tx.InsertIssuer(ctx, &i) })
	if err != nil {
		return i, classify("add issuer", err)
	}
	return i, nil
}

// DeactivateIssuer hides an issuer from new requests. Existing requests
// are untouched.
func (s *Service) DeactivateIssuer(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := activeIssuer(ctx, tx, id); err != nil {
			return err
		}
		return tx.SetIssuerStatus(ctx, id, model.StatusInactive)
	})
	if err != nil {
		return classify("deactivate issuer", err)
	}
	return nil
}

// ListIssuers returns issuers ordered by id.
func (s *Service) ListIssuers(ctx context.Context, activeOnly bool) ([]model.Issuer, error) {
	var out []model.Issuer
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.Issuers(ctx, activeOnly)
		return err
	})
	return out, err
}

func activeIssuer(ctx context.Context, tx *store.Tx, id int64) error {
	i, err := tx.Issuer(ctx, id)
	if err := lookup(err, "issuer", id); err != nil {
		return err
	}
	if i.Status != model.StatusActive {
		return model.NotFound("issuer", id)
	}
	return nil
}
