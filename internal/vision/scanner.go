// Package vision extracts structured receipt data from images through an
// external vision model.
package vision

import "context"

// LineItemData is one extracted line of a receipt.
type LineItemData struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// ReceiptData is the structured result of a scan. Date is normalized to
// ISO 8601 (YYYY-MM-DD).
type ReceiptData struct {
	Merchant      string         `json:"merchant"`
	Date          string         `json:"date"`
	Total         float64        `json:"total"`
	Tax           float64        `json:"tax"`
	Currency      string         `json:"currency"`
	PaymentMethod string         `json:"payment_method"`
	LineItems     []LineItemData `json:"line_items"`
}

// Scanner analyzes a receipt image and extracts its data.
type Scanner interface {
	Scan(ctx context.Context, image []byte, contentType string) (*ReceiptData, error)
	Close() error
}
