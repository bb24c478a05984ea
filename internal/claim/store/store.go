// Package store is the gateway-backed repository for claims. Status
// transitions go through the transition_claim stored procedure so the
// status change and its audit entry commit together; when the procedure is
// missing the store falls back to two sequential writes.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/backend"
	"github.com/receiptwise/receiptwise/internal/claim"
)

const (
	table      = "claims"
	auditTable = "claim_audit"

	selectColumns = "*,audit_trail:claim_audit(*)"
)

type Store struct {
	client *backend.Client
}

func New(client *backend.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Create(ctx context.Context, c *claim.Claim) error {
	var created []*claim.Claim

	if err := s.client.From(table).Insert(ctx, []*claim.Claim{c}, &created); err != nil {
		return fmt.Errorf("creating claim: %w", err)
	}

	if len(created) == 1 {
		*c = *created[0]
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	var c claim.Claim

	err := s.client.From(table).
		Select(selectColumns).
		Eq("id", id).
		Single(ctx, &c)
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}

	return &c, nil
}

func (s *Store) List(ctx context.Context, filter claim.ListFilter) ([]*claim.Claim, error) {
	q := s.client.From(table).
		Select(selectColumns).
		Order("created_at", true)

	if filter.TeamID != nil {
		q = q.Eq("team_id", *filter.TeamID)
	}

	if filter.Status != nil {
		q = q.Eq("status", *filter.Status)
	}

	if filter.Priority != nil {
		q = q.Eq("priority", *filter.Priority)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}

	from := filter.Page * perPage
	q = q.Range(from, from+perPage-1)

	var items []*claim.Claim
	if err := q.Get(ctx, &items); err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}

	return items, nil
}

func (s *Store) Transition(ctx context.Context, entry claim.AuditEntry) error {
	params := map[string]any{
		"p_claim_id": entry.ClaimID,
		"p_actor_id": entry.ActorID,
		"p_action":   entry.Action,
		"p_from":     entry.From,
		"p_to":       entry.To,
		"p_note":     entry.Note,
	}

	err := s.client.RPC(ctx, "transition_claim", params, nil)
	if err == nil {
		return nil
	}

	if !apperr.IsMissingRPC(apperr.Translate(err)) {
		return fmt.Errorf("transitioning claim: %w", err)
	}

	return s.transitionManually(ctx, entry)
}

func (s *Store) transitionManually(ctx context.Context, entry claim.AuditEntry) error {
	// Guard on the expected current status so a concurrent transition
	// fails instead of silently overwriting.
	var updated []claim.Claim

	err := s.client.From(table).
		Eq("id", entry.ClaimID).
		Eq("status", entry.From).
		Update(ctx, map[string]any{
			"status":     entry.To,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		}, &updated)
	if err != nil {
		return fmt.Errorf("updating claim status: %w", err)
	}

	if len(updated) == 0 {
		return apperr.Newf(apperr.KindValidation, "claim is no longer %s", entry.From)
	}

	if err := s.client.From(auditTable).Insert(ctx, []claim.AuditEntry{entry}, nil); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}

	return nil
}
