// Package store is the gateway-backed repository for categories. Receipt
// counts come from the get_category_counts stored procedure; when the
// procedure is missing the store computes them from the receipts table.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/backend"
	"github.com/receiptwise/receiptwise/internal/category"
)

const table = "categories"

type Store struct {
	client *backend.Client
}

func New(client *backend.Client) *Store {
	return &Store{client: client}
}

func (s *Store) List(ctx context.Context, scope category.Scope, ownerID uuid.UUID) ([]*category.Category, error) {
	var items []*category.Category

	err := s.client.From(table).
		Select("*").
		Eq("scope", scope).
		Eq("owner_id", ownerID).
		Order("name", false).
		Get(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	return items, nil
}

func (s *Store) CreateBatch(ctx context.Context, categories []*category.Category) error {
	var created []*category.Category

	if err := s.client.From(table).Insert(ctx, categories, &created); err != nil {
		return fmt.Errorf("creating categories: %w", err)
	}

	for i := range created {
		if i < len(categories) {
			*categories[i] = *created[i]
		}
	}

	return nil
}

func (s *Store) Update(ctx context.Context, c *category.Category) error {
	patch := map[string]any{
		"name":  c.Name,
		"color": c.Color,
		"icon":  c.Icon,
	}

	if err := s.client.From(table).Eq("id", c.ID).Update(ctx, patch, nil); err != nil {
		return fmt.Errorf("updating category: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.From(table).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	return nil
}

type countRow struct {
	CategoryID uuid.UUID `json:"category_id"`
	Count      int       `json:"count"`
}

func (s *Store) Counts(ctx context.Context, scope category.Scope, ownerID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []countRow

	err := s.client.RPC(ctx, "get_category_counts", map[string]any{
		"p_scope":    scope,
		"p_owner_id": ownerID,
	}, &rows)

	if err != nil && apperr.IsMissingRPC(apperr.Translate(err)) {
		return s.countManually(ctx, ownerID)
	}

	if err != nil {
		return nil, fmt.Errorf("fetching category counts: %w", err)
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.Count
	}

	return counts, nil
}

// countManually reproduces the procedure's result from raw receipt rows.
// At client scale (hundreds of receipts) the extra transfer is acceptable.
func (s *Store) countManually(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []struct {
		CategoryID *uuid.UUID `json:"category_id"`
	}

	err := s.client.From("receipts").
		Select("category_id").
		Eq("user_id", ownerID).
		Eq("status", "active").
		Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("counting receipts per category: %w", err)
	}

	counts := make(map[uuid.UUID]int)

	for _, r := range rows {
		if r.CategoryID != nil {
			counts[*r.CategoryID]++
		}
	}

	return counts, nil
}
