package claim

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/state"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=claim
type Repository interface {
	Create(ctx context.Context, c *Claim) error
	Get(ctx context.Context, id uuid.UUID) (*Claim, error)
	List(ctx context.Context, filter ListFilter) ([]*Claim, error)
	// Transition atomically updates the status and appends the audit
	// entry; the backend enforces both happen together.
	Transition(ctx context.Context, entry AuditEntry) error
}

type ListFilter struct {
	TeamID   *uuid.UUID
	Status   *Status
	Priority *Priority
	Page     int
	PerPage  int
}

type Service struct {
	repo      Repository
	container *state.Container[[]*Claim]
	logger    *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:      repo,
		container: state.NewContainer[[]*Claim](),
		logger:    logger,
	}
}

func (s *Service) Container() *state.Container[[]*Claim] {
	return s.container
}

type CreateParams struct {
	TeamID      uuid.UUID
	ClaimantID  uuid.UUID
	Title       string
	Description string
	Amount      decimal.Decimal
	Currency    string
	CategoryID  *uuid.UUID
	Priority    Priority
	Attachments []string
}

// Create stores a new claim in draft.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Claim, error) {
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.New(apperr.KindValidation, "claim amount must be greater than 0")
	}

	if params.Title == "" {
		return nil, apperr.New(apperr.KindValidation, "a title is required")
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	c := &Claim{
		TeamID:      params.TeamID,
		ClaimantID:  params.ClaimantID,
		Title:       params.Title,
		Description: params.Description,
		Amount:      params.Amount,
		Currency:    params.Currency,
		CategoryID:  params.CategoryID,
		Priority:    priority,
		Status:      StatusDraft,
		Attachments: params.Attachments,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Translate(err)
	}

	s.container.Mutate(func(items []*Claim) []*Claim {
		out := make([]*Claim, 0, len(items)+1)
		out = append(out, c)

		return append(out, items...)
	})

	return c, nil
}

func (s *Service) Load(ctx context.Context, filter ListFilter) error {
	token := s.container.Begin()

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		err = apperr.Translate(err)
	}

	s.container.Complete(token, items, err)

	return err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Translate(err)
	}

	return c, nil
}

// Submit moves a draft claim into the approval queue.
func (s *Service) Submit(ctx context.Context, id, actor uuid.UUID) (*Claim, error) {
	return s.transition(ctx, id, actor, StatusPending, "submit", "")
}

// Approve accepts a pending claim.
func (s *Service) Approve(ctx context.Context, id, actor uuid.UUID, note string) (*Claim, error) {
	return s.transition(ctx, id, actor, StatusApproved, "approve", note)
}

// Reject declines a pending claim.
func (s *Service) Reject(ctx context.Context, id, actor uuid.UUID, note string) (*Claim, error) {
	return s.transition(ctx, id, actor, StatusRejected, "reject", note)
}

// MarkPaid records payout of an approved claim.
func (s *Service) MarkPaid(ctx context.Context, id, actor uuid.UUID) (*Claim, error) {
	return s.transition(ctx, id, actor, StatusPaid, "mark_paid", "")
}

func (s *Service) transition(ctx context.Context, id, actor uuid.UUID, next Status, action, note string) (*Claim, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Translate(err)
	}

	if !c.Status.CanTransitionTo(next) {
		return nil, apperr.Newf(apperr.KindValidation,
			"a %s claim cannot be moved to %s", c.Status, next)
	}

	entry := AuditEntry{
		ClaimID:   id,
		ActorID:   actor,
		Action:    action,
		From:      c.Status,
		To:        next,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Transition(ctx, entry); err != nil {
		return nil, apperr.Translate(err)
	}

	c.Status = next
	c.AuditTrail = append(c.AuditTrail, entry)

	s.container.Mutate(func(items []*Claim) []*Claim {
		out := append([]*Claim(nil), items...)
		for i, existing := range out {
			if existing.ID == id {
				out[i] = c
				break
			}
		}

		return out
	})

	return c, nil
}
