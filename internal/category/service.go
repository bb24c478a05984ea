package category

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/state"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=category
type Repository interface {
	List(ctx context.Context, scope Scope, ownerID uuid.UUID) ([]*Category, error)
	CreateBatch(ctx context.Context, categories []*Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Counts returns receipts-per-category, computed server-side.
	Counts(ctx context.Context, scope Scope, ownerID uuid.UUID) (map[uuid.UUID]int, error)
}

type Service struct {
	repo      Repository
	container *state.Container[[]*Category]
	logger    *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:      repo,
		container: state.NewContainer[[]*Category](),
		logger:    logger,
	}
}

func (s *Service) Container() *state.Container[[]*Category] {
	return s.container
}

// Load fetches the owner's categories with their receipt counts.
func (s *Service) Load(ctx context.Context, scope Scope, ownerID uuid.UUID) error {
	token := s.container.Begin()

	items, err := s.fetch(ctx, scope, ownerID)
	if err != nil {
		err = apperr.Translate(err)
	}

	s.container.Complete(token, items, err)

	return err
}

func (s *Service) fetch(ctx context.Context, scope Scope, ownerID uuid.UUID) ([]*Category, error) {
	items, err := s.repo.List(ctx, scope, ownerID)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.Counts(ctx, scope, ownerID)
	if err != nil {
		// Counts are cosmetic; the list is still useful without them.
		s.logger.Warn("loading category counts", "error", err)
		return items, nil
	}

	for _, c := range items {
		c.ReceiptCount = counts[c.ID]
	}

	return items, nil
}

// EnsureDefaults creates any missing default categories for a new owner.
// Running it twice never duplicates: existing names are skipped.
func (s *Service) EnsureDefaults(ctx context.Context, scope Scope, ownerID uuid.UUID) error {
	existing, err := s.repo.List(ctx, scope, ownerID)
	if err != nil {
		return apperr.Translate(err)
	}

	names := make(map[string]bool, len(existing))
	for _, c := range existing {
		names[c.Name] = true
	}

	var missing []*Category

	for _, def := range Defaults() {
		if names[def.Name] {
			continue
		}

		c := def
		c.Scope = scope
		c.OwnerID = ownerID
		missing = append(missing, &c)
	}

	if len(missing) == 0 {
		return nil
	}

	if err := s.repo.CreateBatch(ctx, missing); err != nil {
		return apperr.Translate(err)
	}

	s.container.Mutate(func(items []*Category) []*Category {
		return append(append([]*Category(nil), items...), missing...)
	})

	return nil
}

type UpdateParams struct {
	Name  *string
	Color *string
	Icon  *string
}

// Update renames or restyles a category.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	var target *Category

	for _, c := range s.container.Data() {
		if c.ID == id {
			clone := *c
			target = &clone

			break
		}
	}

	if target == nil {
		return apperr.New(apperr.KindValidation, "unknown category")
	}

	if params.Name != nil {
		if *params.Name == "" {
			return apperr.New(apperr.KindValidation, "category name cannot be empty")
		}

		target.Name = *params.Name
	}

	if params.Color != nil {
		target.Color = *params.Color
	}

	if params.Icon != nil {
		target.Icon = *params.Icon
	}

	if err := s.repo.Update(ctx, target); err != nil {
		return apperr.Translate(err)
	}

	s.container.Mutate(func(items []*Category) []*Category {
		out := append([]*Category(nil), items...)
		for i, c := range out {
			if c.ID == id {
				out[i] = target
				break
			}
		}

		return out
	})

	return nil
}

// Delete removes a category optimistically, restoring on remote failure.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	snapshot := s.container.Snapshot()

	s.container.Mutate(func(items []*Category) []*Category {
		out := make([]*Category, 0, len(items))
		for _, c := range items {
			if c.ID != id {
				out = append(out, c)
			}
		}

		return out
	})

	if err := s.repo.Delete(ctx, id); err != nil {
		terr := apperr.Translate(err)
		s.container.Restore(snapshot, terr)

		return terr
	}

	return nil
}
