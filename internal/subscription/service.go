package subscription

//go:generate mockgen -source=service.go -destination=service_mock.go -package=subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/state"
)

// Repository loads the account's subscription row.
type Repository interface {
	Get(ctx context.Context) (*Subscription, error)
	IncrementUsage(ctx context.Context) error
}

// Service caches the subscription and answers usage-gate questions for
// the capture flow.
type Service struct {
	repo      Repository
	container *state.Container[*Subscription]
	logger    *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		container: state.NewContainer[*Subscription](),
		logger:    logger,
	}
}

// Container exposes the subscription state for subscribers.
func (s *Service) Container() *state.Container[*Subscription] {
	return s.container
}

// Load fetches the subscription from the backend. Accounts without a
// row are treated as free-tier.
func (s *Service) Load(ctx context.Context) error {
	token := s.container.Begin()

	sub, err := s.repo.Get(ctx)
	if err != nil {
		translated := apperr.Translate(err)
		s.container.Complete(token, nil, translated)
		return translated
	}
	if sub == nil {
		sub = &Subscription{Tier: TierFree, Status: StatusActive}
	}

	s.container.Complete(token, sub, nil)
	return nil
}

// Refresh re-fetches the subscription, used after checkout or on the
// monthly reset boundary.
func (s *Service) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

// Current returns the cached subscription, defaulting to free tier
// when nothing has loaded yet.
func (s *Service) Current() *Subscription {
	sub := s.container.Data()
	if sub == nil {
		return &Subscription{Tier: TierFree, Status: StatusActive}
	}
	return sub
}

// CanUploadReceipt reports whether the account may capture another
// receipt this month. Past-due accounts are blocked regardless of
// tier.
func (s *Service) CanUploadReceipt(ctx context.Context) error {
	sub := s.Current()

	if sub.Status == StatusPastDue {
		return apperr.New(apperr.KindPayment, "your subscription payment is past due")
	}

	limit := sub.Tier.ReceiptLimit()
	if limit == 0 {
		return nil
	}

	used := sub.ReceiptsUsed
	if !sub.UsageResetAt.IsZero() && time.Now().After(sub.UsageResetAt) {
		// Counter is stale; the backend resets it on the next write.
		used = 0
	}

	if used >= limit {
		return apperr.Newf(apperr.KindPayment,
			"you have used all %d receipts on the %s plan this month", limit, sub.Tier)
	}
	return nil
}

// RecordUpload bumps the usage counter after a successful capture. The
// local container is patched optimistically; a failed backend write
// only logs, the server recount wins on next load.
func (s *Service) RecordUpload(ctx context.Context) {
	s.container.Mutate(func(sub *Subscription) *Subscription {
		if sub == nil {
			return sub
		}
		next := *sub
		next.ReceiptsUsed++
		return &next
	})

	if err := s.repo.IncrementUsage(ctx); err != nil {
		s.logger.Warn("recording receipt usage failed", "error", err)
	}
}
