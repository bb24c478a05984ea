package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/realtime"
)

// Type is the event kind a notification was created for.
type Type string

// Receipt-processing events.
const (
	TypeReceiptProcessingStarted   Type = "receipt_processing_started"
	TypeReceiptProcessingCompleted Type = "receipt_processing_completed"
	TypeReceiptProcessingFailed    Type = "receipt_processing_failed"
	TypeReceiptReadyForReview      Type = "receipt_ready_for_review"
	TypeReceiptBatchCompleted      Type = "receipt_batch_completed"
	TypeReceiptBatchFailed         Type = "receipt_batch_failed"
	TypeReceiptShared              Type = "receipt_shared"
	TypeReceiptCommentAdded        Type = "receipt_comment_added"
)

// Team-collaboration events.
const (
	TypeTeamInvitationSent     Type = "team_invitation_sent"
	TypeTeamInvitationAccepted Type = "team_invitation_accepted"
	TypeTeamInvitationDeclined Type = "team_invitation_declined"
	TypeTeamMemberJoined       Type = "team_member_joined"
	TypeTeamMemberLeft         Type = "team_member_left"
	TypeTeamMemberRemoved      Type = "team_member_removed"
	TypeTeamRoleChanged        Type = "team_role_changed"
	TypeTeamSettingsUpdated    Type = "team_settings_updated"
)

// Claim-workflow events.
const (
	TypeClaimSubmitted       Type = "claim_submitted"
	TypeClaimApproved        Type = "claim_approved"
	TypeClaimRejected        Type = "claim_rejected"
	TypeClaimPaid            Type = "claim_paid"
	TypeClaimCommentAdded    Type = "claim_comment_added"
	TypeClaimAttachmentAdded Type = "claim_attachment_added"
	TypeClaimReminder        Type = "claim_reminder"
)

// Account and system events.
const (
	TypeSubscriptionUpgraded Type = "subscription_upgraded"
	TypeSubscriptionExpiring Type = "subscription_expiring"
	TypeUsageLimitWarning    Type = "usage_limit_warning"
	TypeSystemAnnouncement   Type = "system_announcement"
)

// Channel is the platform notification channel a type is displayed on.
type Channel string

const (
	ChannelReceipts Channel = "receipts"
	ChannelTeams    Channel = "teams"
	ChannelClaims   Channel = "claims"
	ChannelGeneral  Channel = "general"
)

var channelByType = map[Type]Channel{
	TypeReceiptProcessingStarted:   ChannelReceipts,
	TypeReceiptProcessingCompleted: ChannelReceipts,
	TypeReceiptProcessingFailed:    ChannelReceipts,
	TypeReceiptReadyForReview:      ChannelReceipts,
	TypeReceiptBatchCompleted:      ChannelReceipts,
	TypeReceiptBatchFailed:         ChannelReceipts,
	TypeReceiptShared:              ChannelReceipts,
	TypeReceiptCommentAdded:        ChannelReceipts,

	TypeTeamInvitationSent:     ChannelTeams,
	TypeTeamInvitationAccepted: ChannelTeams,
	TypeTeamInvitationDeclined: ChannelTeams,
	TypeTeamMemberJoined:       ChannelTeams,
	TypeTeamMemberLeft:         ChannelTeams,
	TypeTeamMemberRemoved:      ChannelTeams,
	TypeTeamRoleChanged:        ChannelTeams,
	TypeTeamSettingsUpdated:    ChannelTeams,

	TypeClaimSubmitted:       ChannelClaims,
	TypeClaimApproved:        ChannelClaims,
	TypeClaimRejected:        ChannelClaims,
	TypeClaimPaid:            ChannelClaims,
	TypeClaimCommentAdded:    ChannelClaims,
	TypeClaimAttachmentAdded: ChannelClaims,
	TypeClaimReminder:        ChannelClaims,

	TypeSubscriptionUpgraded: ChannelGeneral,
	TypeSubscriptionExpiring: ChannelGeneral,
	TypeUsageLimitWarning:    ChannelGeneral,
	TypeSystemAnnouncement:   ChannelGeneral,
}

// Channel returns the notification channel for the type; unknown types
// land on the general channel.
func (t Type) Channel() Channel {
	if ch, ok := channelByType[t]; ok {
		return ch
	}

	return ChannelGeneral
}

// Priority drives display prominence and the high-priority unread counter.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification mirrors a row of the notifications table. A notification
// is unread iff ReadAt is nil; archived ones are excluded from default
// listings.
type Notification struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	TeamID     *uuid.UUID     `json:"team_id,omitempty"`
	Type       Type           `json:"type"`
	Priority   Priority       `json:"priority"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	ActionLink string         `json:"action_link,omitempty"`
	EntityType string         `json:"related_entity_type,omitempty"`
	EntityID   *uuid.UUID     `json:"related_entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ReadAt     *time.Time     `json:"read_at"`
	ArchivedAt *time.Time     `json:"archived_at"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  *time.Time     `json:"expires_at"`
}

func (n *Notification) Unread() bool {
	return n.ReadAt == nil
}

func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// FromRow decodes a realtime change-feed row into a Notification.
func FromRow(row realtime.Row) (*Notification, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("encoding row: %w", err)
	}

	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding notification row: %w", err)
	}

	return &n, nil
}
