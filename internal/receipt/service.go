package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/realtime"
	"github.com/receiptwise/receiptwise/internal/state"
	"github.com/receiptwise/receiptwise/internal/vision"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=receipt
type Repository interface {
	Create(ctx context.Context, r *Receipt) error
	Get(ctx context.Context, id uuid.UUID) (*Receipt, error)
	List(ctx context.Context, filter ListFilter) ([]*Receipt, error)
	Update(ctx context.Context, r *Receipt) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImageStore uploads a captured image and returns its public URL.
type ImageStore interface {
	UploadImage(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// UsageGate is consulted around a capture; the subscription service
// enforces the tier's monthly receipt limit through it and keeps its
// usage counter in step.
type UsageGate interface {
	CanUploadReceipt(ctx context.Context) error
	RecordUpload(ctx context.Context)
}

// Extractor runs vision extraction on a captured image. Optional: when
// absent, the backend pipeline does the extraction and the client just
// watches the processing status.
type Extractor interface {
	Scan(ctx context.Context, image []byte, contentType string) (*vision.ReceiptData, error)
}

type ListFilter struct {
	Status     *Status
	Processing *ProcessingStatus
	CategoryID *uuid.UUID
	TeamID     *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	PerPage    int
}

type Service struct {
	repo      Repository
	images    ImageStore
	gate      UsageGate
	extractor Extractor
	container *state.Container[[]*Receipt]
	logger    *slog.Logger
}

func NewService(repo Repository, images ImageStore, gate UsageGate, extractor Extractor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:      repo,
		images:    images,
		gate:      gate,
		extractor: extractor,
		container: state.NewContainer[[]*Receipt](),
		logger:    logger,
	}
}

func (s *Service) Container() *state.Container[[]*Receipt] {
	return s.container
}

type CaptureParams struct {
	UserID      uuid.UUID
	TeamID      *uuid.UUID
	Image       []byte
	ContentType string
	Currency    string
}

// Capture uploads the image, creates the receipt row in pending state and,
// when a local extractor is configured, fills in the extracted fields
// immediately. The backend pipeline owns the processing status otherwise.
func (s *Service) Capture(ctx context.Context, params CaptureParams) (*Receipt, error) {
	if len(params.Image) == 0 {
		return nil, apperr.New(apperr.KindValidation, "an image is required")
	}

	if s.gate != nil {
		if err := s.gate.CanUploadReceipt(ctx); err != nil {
			return nil, err
		}
	}

	name := uuid.NewString() + extensionFor(params.ContentType)

	url, err := s.images.UploadImage(ctx, name, params.Image, params.ContentType)
	if err != nil {
		return nil, apperr.Translate(fmt.Errorf("uploading receipt image: %w", err))
	}

	r := &Receipt{
		UserID:     params.UserID,
		TeamID:     params.TeamID,
		Currency:   params.Currency,
		Processing: ProcessingPending,
		Status:     StatusActive,
		ImageURL:   url,
		Date:       time.Now().UTC(),
	}

	if s.extractor != nil {
		s.applyExtraction(ctx, r, params.Image, params.ContentType)
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, apperr.Translate(err)
	}

	if s.gate != nil {
		s.gate.RecordUpload(ctx)
	}

	s.container.Mutate(func(items []*Receipt) []*Receipt {
		out := make([]*Receipt, 0, len(items)+1)
		out = append(out, r)

		return append(out, items...)
	})

	return r, nil
}

func (s *Service) applyExtraction(ctx context.Context, r *Receipt, image []byte, contentType string) {
	data, err := s.extractor.Scan(ctx, image, contentType)
	if err != nil {
		// Extraction failing locally is not fatal; the backend pipeline
		// will pick the receipt up from pending.
		s.logger.Warn("local extraction failed", "error", err)
		return
	}

	r.Merchant = data.Merchant
	r.Total = decimal.NewFromFloat(data.Total)
	r.Tax = decimal.NewFromFloat(data.Tax)
	r.PaymentMethod = data.PaymentMethod

	if date, err := time.Parse(time.DateOnly, data.Date); err == nil {
		r.Date = date
	}

	for _, item := range data.LineItems {
		r.LineItems = append(r.LineItems, LineItem{
			Description: item.Description,
			Quantity:    decimal.NewFromFloat(item.Quantity),
			UnitPrice:   decimal.NewFromFloat(item.UnitPrice),
			Total:       decimal.NewFromFloat(item.Total),
		})
	}

	r.Processing = ProcessingCompleted
}

// Load fetches receipts with the filter and replaces the list; a newer
// load supersedes an older in-flight one.
func (s *Service) Load(ctx context.Context, filter ListFilter) error {
	token := s.container.Begin()

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		err = apperr.Translate(err)
	}

	s.container.Complete(token, items, err)

	return err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Translate(err)
	}

	return r, nil
}

type EditParams struct {
	Merchant      *string
	Date          *time.Time
	Total         *decimal.Decimal
	Tax           *decimal.Decimal
	Currency      *string
	PaymentMethod *string
	CategoryID    *uuid.UUID
}

// Edit applies a manual correction. A manual edit forces the processing
// status to a terminal state so the pipeline stops touching the row.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, params EditParams) (*Receipt, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Translate(err)
	}

	if params.Total != nil {
		if params.Total.LessThanOrEqual(decimal.Zero) {
			return nil, apperr.New(apperr.KindValidation, "total amount must be greater than 0")
		}

		r.Total = *params.Total
	}

	if params.Merchant != nil {
		r.Merchant = *params.Merchant
	}

	if params.Date != nil {
		r.Date = *params.Date
	}

	if params.Tax != nil {
		r.Tax = *params.Tax
	}

	if params.Currency != nil {
		r.Currency = *params.Currency
	}

	if params.PaymentMethod != nil {
		r.PaymentMethod = *params.PaymentMethod
	}

	if params.CategoryID != nil {
		r.CategoryID = params.CategoryID
	}

	if !r.Processing.Terminal() {
		r.Processing = ProcessingCompleted
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, apperr.Translate(err)
	}

	s.container.Mutate(func(items []*Receipt) []*Receipt {
		out := append([]*Receipt(nil), items...)
		for i, existing := range out {
			if existing.ID == r.ID {
				out[i] = r
				break
			}
		}

		return out
	})

	return r, nil
}

// Archive moves a receipt out of active listings, optimistically.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	snapshot := s.container.Snapshot()

	s.container.Mutate(func(items []*Receipt) []*Receipt {
		out := make([]*Receipt, 0, len(items))
		for _, r := range items {
			if r.ID != id {
				out = append(out, r)
			}
		}

		return out
	})

	r, err := s.repo.Get(ctx, id)
	if err == nil {
		r.Status = StatusArchived
		err = s.repo.Update(ctx, r)
	}

	if err != nil {
		terr := apperr.Translate(err)
		s.container.Restore(snapshot, terr)

		return terr
	}

	return nil
}

// Delete removes a receipt (and, by cascade, its line items).
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	snapshot := s.container.Snapshot()

	s.container.Mutate(func(items []*Receipt) []*Receipt {
		out := make([]*Receipt, 0, len(items))
		for _, r := range items {
			if r.ID != id {
				out = append(out, r)
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

// Watch patches the in-memory list as the backend pipeline advances
// processing statuses.
func (s *Service) Watch(bridge *realtime.Bridge, userID uuid.UUID) (*realtime.Subscription, error) {
	return bridge.Subscribe("receipts",
		&realtime.Filter{Column: "user_id", Value: userID.String()},
		realtime.Callbacks{
			OnUpdate: s.HandleUpdate,
			OnDelete: s.HandleDelete,
		})
}

// HandleUpdate applies a processing-status change pushed by the backend.
func (s *Service) HandleUpdate(row realtime.Row) {
	id, ok := rowID(row)
	if !ok {
		return
	}

	status, _ := row["processing_status"].(string)
	if status == "" {
		return
	}

	s.container.Mutate(func(items []*Receipt) []*Receipt {
		out := append([]*Receipt(nil), items...)
		for i, r := range out {
			if r.ID == id {
				clone := *r
				clone.Processing = ProcessingStatus(status)
				out[i] = &clone

				break
			}
		}

		return out
	})
}

// HandleDelete drops a server-deleted receipt from the list.
func (s *Service) HandleDelete(row realtime.Row) {
	id, ok := rowID(row)
	if !ok {
		return
	}

	s.container.Mutate(func(items []*Receipt) []*Receipt {
		out := make([]*Receipt, 0, len(items))
		for _, r := range items {
			if r.ID != id {
				out = append(out, r)
			}
		}

		return out
	})
}

func rowID(row realtime.Row) (uuid.UUID, bool) {
	raw, _ := row["id"].(string)

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/heic":
		return ".heic"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".jpg"
	}
}
