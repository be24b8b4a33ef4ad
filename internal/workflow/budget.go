package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
)

// ImportBudget creates one active budget line per row, tagged with year and
// project, and rebuilds balances. Activity codes must be positive and unique
// both within rows and against every stored line.
func (s *Service) ImportBudget(ctx context.Context, year int, project string, rows []model.BudgetRow) ([]model.BudgetLine, error) {
	project = strings.TrimSpace(project)
	if year <= 0 {
		return nil, model.Invalid("year", "must be positive")
	}
	if project == "" {
		return nil, model.Invalid("project", "required")
	}
	if len(rows) == 0 {
		return nil, model.Invalid("rows", "no budget lines to import")
	}

	seen := make(map[int64]int, len(rows))
	for i, r := range rows {
		if r.ActivityCode <= 0 {
			return nil, model.Invalid(fmt.Sprintf("row %d: activity_code", i+1), "must be positive")
		}
		if r.Amount < 0 {
			return nil, model.Invalid(fmt.Sprintf("row %d: amount", i+1), "must not be negative")
		}
		if r.Amount > model.MaxAmount {
			return nil, model.Invalid(fmt.Sprintf("row %d: amount", i+1), "out of range")
		}
		if prev, dup := seen[r.ActivityCode]; dup {
			return nil, model.Invalid(fmt.Sprintf("row %d: activity_code", i+1),
				fmt.Sprintf("%d repeats row %d", r.ActivityCode, prev))
		}
		seen[r.ActivityCode] = i + 1
	}

	lines := make([]model.BudgetLine, 0, len(rows))
	err := s.commit(ctx, "import budget", func(tx *store.Tx) error {
		for i, r := range rows {
			_, err := tx.BudgetLineByActivityCode(ctx, r.ActivityCode)
			if err == nil {
				return model.Invalid(fmt.Sprintf("row %d: activity_code", i+1),
					fmt.Sprintf("%d already exists", r.ActivityCode))
			}
			if !errors.Is(err, store.ErrNoRow) {
				return err
			}

			b := model.BudgetLine{
				Year:           year,
				Project:        project,
				Activities:     r.Activities,
				ProjectCode:    r.ProjectCode,
				Result:         r.Result,
				ItemCode:       r.ItemCode,
				ActivityCode:   r.ActivityCode,
				BaselineAmount: r.Amount,
			}
			if err := tx.InsertBudgetLine(ctx, &b); err != nil {
				return fmt.Errorf("inserting activity %d: %w", r.ActivityCode, err)
			}
			lines = append(lines, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("ptab workflow: imported %d budget lines for %s %d", len(lines), project, year)
	return lines, nil
}

// DeactivateBudget marks every active line of year and project inactive and
// rebuilds balances. It returns the number of lines deactivated.
func (s *Service) DeactivateBudget(ctx context.Context, year int, project string) (int, error) {
	project = strings.TrimSpace(project)
	if year <= 0 {
		return 0, model.Invalid("year", "must be positive")
	}
	if project == "" {
		return 0, model.Invalid("project", "required")
	}

	var n int
	err := s.commit(ctx, "deactivate budget", func(tx *store.Tx) error {
		lines, err := tx.ActiveBudgetLinesFor(ctx, year, project)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return &model.NotFoundError{Entity: "budget", Key: fmt.Sprintf("%s %d", project, year)}
		}
		for _, l := range lines {
			if err := tx.SetBudgetLineStatus(ctx, l.ID, model.StatusInactive); err != nil {
				return err
			}
		}
		n = len(lines)
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("ptab workflow: deactivated %d budget lines for %s %d", n, project, year)
	return n, nil
}

// BudgetPreview returns the active lines of year and project, for
// confirmation before deactivation.
func (s *Service) BudgetPreview(ctx context.Context, year int, project string) ([]model.BudgetLine, error) {
	var lines []model.BudgetLine
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		lines, err = tx.ActiveBudgetLinesFor(ctx, year, project)
		return err
	})
	return lines, err
}
