// Package store is the gateway-backed repository for notification rows.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/backend"
	"github.com/receiptwise/receiptwise/internal/notification"
)

const table = "notifications"

type Store struct {
	client *backend.Client
}

func New(client *backend.Client) *Store {
	return &Store{client: client}
}

func (s *Store) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, error) {
	q := s.client.From(table).
		Select("*").
		IsNull("archived_at").
		Order("created_at", true)

	if filter.TeamID != nil {
		q = q.Eq("team_id", *filter.TeamID)
	}

	if filter.Type != nil {
		q = q.Eq("type", *filter.Type)
	}

	if filter.Priority != nil {
		q = q.Eq("priority", *filter.Priority)
	}

	if filter.UnreadOnly {
		q = q.IsNull("read_at")
	}

	if filter.Since != nil {
		q = q.Gte("created_at", filter.Since.Format(time.RFC3339))
	}

	if filter.Until != nil {
		q = q.Lte("created_at", filter.Until.Format(time.RFC3339))
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = notification.DefaultPerPage
	}

	from := filter.Page * perPage
	q = q.Range(from, from+perPage-1)

	var items []*notification.Notification
	if err := q.Get(ctx, &items); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	return items, nil
}

func (s *Store) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := s.client.From(table).
		Eq("id", id).
		Update(ctx, map[string]any{"read_at": at.Format(time.RFC3339)}, nil)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}

	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, at time.Time) error {
	err := s.client.From(table).
		IsNull("read_at").
		IsNull("archived_at").
		Update(ctx, map[string]any{"read_at": at.Format(time.RFC3339)}, nil)
	if err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}

	return nil
}

func (s *Store) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := s.client.From(table).
		Eq("id", id).
		Update(ctx, map[string]any{"archived_at": at.Format(time.RFC3339)}, nil)
	if err != nil {
		return fmt.Errorf("archiving notification: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.From(table).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}

	return nil
}
