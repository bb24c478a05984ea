package claim

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the claim's workflow state. Transitions go draft -> pending ->
// approved/rejected, with paid only reachable from approved.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPaid     Status = "paid"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusPending},
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusPaid},
}

// CanTransitionTo reports whether the workflow allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// AuditEntry is one append-only record of a status-changing action.
type AuditEntry struct {
	ID        uuid.UUID `json:"id"`
	ClaimID   uuid.UUID `json:"claim_id"`
	ActorID   uuid.UUID `json:"actor_id"`
	Action    string    `json:"action"`
	From      Status    `json:"from_status"`
	To        Status    `json:"to_status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Claim mirrors a row of the claims table with its audit trail.
type Claim struct {
	ID          uuid.UUID       `json:"id"`
	TeamID      uuid.UUID       `json:"team_id"`
	ClaimantID  uuid.UUID       `json:"claimant_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	Priority    Priority        `json:"priority"`
	Status      Status          `json:"status"`
	Attachments []string        `json:"attachments,omitempty"`
	AuditTrail  []AuditEntry    `json:"audit_trail,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}
