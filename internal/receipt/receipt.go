package receipt

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProcessingStatus is the server-assigned stage of a receipt's extraction
// pipeline. The client reads it and may force a terminal state on manual
// edit; all other transitions are server-driven.
type ProcessingStatus string

const (
	ProcessingPending      ProcessingStatus = "pending"
	ProcessingInProgress   ProcessingStatus = "processing"
	ProcessingCompleted    ProcessingStatus = "completed"
	ProcessingFailed       ProcessingStatus = "failed"
	ProcessingManualReview ProcessingStatus = "manual_review"
)

// Terminal reports whether the pipeline is done with this receipt.
func (p ProcessingStatus) Terminal() bool {
	switch p {
	case ProcessingCompleted, ProcessingFailed, ProcessingManualReview:
		return true
	}

	return false
}

// Status is the receipt's lifecycle state, independent of processing.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// LineItem is one extracted line of a receipt; line items are owned by and
// cascade-deleted with their receipt.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	ReceiptID   uuid.UUID       `json:"receipt_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Receipt mirrors a row of the receipts table.
type Receipt struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"user_id"`
	TeamID        *uuid.UUID       `json:"team_id,omitempty"`
	Merchant      string           `json:"merchant_name"`
	Date          time.Time        `json:"transaction_date"`
	Total         decimal.Decimal  `json:"total_amount"`
	Currency      string           `json:"currency"`
	Tax           decimal.Decimal  `json:"tax_amount"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	Processing    ProcessingStatus `json:"processing_status"`
	Status        Status           `json:"status"`
	ImageURL      string           `json:"image_url,omitempty"`
	LineItems     []LineItem       `json:"line_items,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     *time.Time       `json:"updated_at,omitempty"`
}
