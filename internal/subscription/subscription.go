package subscription

import (
	"time"
)

// Tier is the plan the account is on.
type Tier string

const (
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// ReceiptLimit is the monthly receipt allowance for the tier; 0 means
// unlimited.
func (t Tier) ReceiptLimit() int {
	switch t {
	case TierFree:
		return 50
	case TierPremium:
		return 500
	default:
		return 0
	}
}

// Status is the billing state of the subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusPastDue   Status = "past_due"
)

// Subscription mirrors the account's subscription row, including the
// usage counters the backend resets monthly.
type Subscription struct {
	Tier             Tier       `json:"tier"`
	Status           Status     `json:"status"`
	ReceiptsUsed     int        `json:"receipts_used"`
	UsageResetAt     time.Time  `json:"usage_reset_at"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}
