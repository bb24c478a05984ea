// Package store is the gateway-backed repository for the account's
// subscription row. Row-level security scopes the table to the signed-in
// user, so queries carry no explicit owner filter.
package store

import (
	"context"
	"fmt"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/backend"
	"github.com/receiptwise/receiptwise/internal/subscription"
)

const table = "subscriptions"

type Store struct {
	client *backend.Client
}

func New(client *backend.Client) *Store {
	return &Store{client: client}
}

// Get returns the account's subscription, or nil when the account has
// never subscribed.
func (s *Store) Get(ctx context.Context) (*subscription.Subscription, error) {
	var sub subscription.Subscription

	err := s.client.From(table).Single(ctx, &sub)
	if err != nil {
		if apperr.IsNoRows(apperr.Translate(err)) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting subscription: %w", err)
	}

	return &sub, nil
}

// IncrementUsage bumps the monthly receipt counter through the
// increment_receipt_usage stored procedure. The procedure also handles
// the monthly reset, so there is no manual fallback.
func (s *Store) IncrementUsage(ctx context.Context) error {
	if err := s.client.RPC(ctx, "increment_receipt_usage", nil, nil); err != nil {
		return fmt.Errorf("incrementing receipt usage: %w", err)
	}

	return nil
}
