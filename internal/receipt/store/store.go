// Package store is the gateway-backed repository for receipt rows and
// their images.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/backend"
	"github.com/receiptwise/receiptwise/internal/receipt"
)

const (
	table = "receipts"

	// Line items ride along on every read; they are cascade-deleted with
	// the receipt server-side.
	selectColumns = "*,line_items(*)"
)

type Store struct {
	client *backend.Client
	bucket string
	limit  backend.UploadLimit
}

func New(client *backend.Client, bucket string, maxUploadBytes int64) *Store {
	return &Store{client: client, bucket: bucket, limit: backend.UploadLimit(maxUploadBytes)}
}

func (s *Store) UploadImage(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	return s.client.Upload(ctx, s.bucket, name, data, contentType, s.limit)
}

func (s *Store) Create(ctx context.Context, r *receipt.Receipt) error {
	var created []*receipt.Receipt

	if err := s.client.From(table).Insert(ctx, []*receipt.Receipt{r}, &created); err != nil {
		return fmt.Errorf("creating receipt: %w", err)
	}

	if len(created) == 1 {
		*r = *created[0]
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error) {
	var r receipt.Receipt

	err := s.client.From(table).
		Select(selectColumns).
		Eq("id", id).
		Single(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	return &r, nil
}

func (s *Store) List(ctx context.Context, filter receipt.ListFilter) ([]*receipt.Receipt, error) {
	q := s.client.From(table).
		Select(selectColumns).
		Order("transaction_date", true)

	if filter.Status != nil {
		q = q.Eq("status", *filter.Status)
	} else {
		q = q.Eq("status", receipt.StatusActive)
	}

	if filter.Processing != nil {
		q = q.Eq("processing_status", *filter.Processing)
	}

	if filter.CategoryID != nil {
		q = q.Eq("category_id", *filter.CategoryID)
	}

	if filter.TeamID != nil {
		q = q.Eq("team_id", *filter.TeamID)
	}

	if filter.StartDate != nil {
		q = q.Gte("transaction_date", filter.StartDate.Format(time.DateOnly))
	}

	if filter.EndDate != nil {
		q = q.Lte("transaction_date", filter.EndDate.Format(time.DateOnly))
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}

	from := filter.Page * perPage
	q = q.Range(from, from+perPage-1)

	var items []*receipt.Receipt
	if err := q.Get(ctx, &items); err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	return items, nil
}

func (s *Store) Update(ctx context.Context, r *receipt.Receipt) error {
	patch := map[string]any{
		"merchant_name":     r.Merchant,
		"transaction_date":  r.Date.Format(time.DateOnly),
		"total_amount":      r.Total,
		"tax_amount":        r.Tax,
		"currency":          r.Currency,
		"payment_method":    r.PaymentMethod,
		"category_id":       r.CategoryID,
		"processing_status": r.Processing,
		"status":            r.Status,
	}

	if err := s.client.From(table).Eq("id", r.ID).Update(ctx, patch, nil); err != nil {
		return fmt.Errorf("updating receipt: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.From(table).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}

	return nil
}
