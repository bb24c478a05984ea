package notification_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/receiptwise/internal/notification"
)

type fakeNotifier struct {
	shown []notification.LocalNotification
}

func (f *fakeNotifier) Show(n notification.LocalNotification) error {
	f.shown = append(f.shown, n)
	return nil
}

type fakePrefs struct {
	push     bool
	disabled map[notification.Type]bool
}

func (f *fakePrefs) PushEnabled() bool { return f.push }

func (f *fakePrefs) TypeEnabled(t notification.Type) bool { return !f.disabled[t] }

func TestDispatcher_Dispatch(t *testing.T) {
	n := &notification.Notification{
		ID:         uuid.New(),
		Type:       notification.TypeClaimApproved,
		Priority:   notification.PriorityHigh,
		Title:      "Claim approved",
		Message:    "Your claim for 42.50 EUR was approved",
		ActionLink: "/claims/abc",
	}

	t.Run("DisplaysWithDeepLinkPayload", func(t *testing.T) {
		notifier := &fakeNotifier{}
		d := notification.NewDispatcher(notifier, &fakePrefs{push: true}, nil)

		d.Dispatch(n)

		require.Len(t, notifier.shown, 1)

		shown := notifier.shown[0]
		assert.Equal(t, notification.ChannelClaims, shown.Channel)
		assert.Equal(t, "Claim approved", shown.Title)
		assert.Equal(t, n.ID.String(), shown.Payload["notification_id"])
		assert.Equal(t, "claim_approved", shown.Payload["type"])
		assert.Equal(t, "/claims/abc", shown.Payload["action_link"])
	})

	t.Run("SuppressedWhenPushDisabled", func(t *testing.T) {
		notifier := &fakeNotifier{}
		d := notification.NewDispatcher(notifier, &fakePrefs{push: false}, nil)

		d.Dispatch(n)

		assert.Empty(t, notifier.shown)
	})

	t.Run("SuppressedWhenTypeDisabled", func(t *testing.T) {
		notifier := &fakeNotifier{}
		prefs := &fakePrefs{push: true, disabled: map[notification.Type]bool{notification.TypeClaimApproved: true}}
		d := notification.NewDispatcher(notifier, prefs, nil)

		d.Dispatch(n)

		assert.Empty(t, notifier.shown)
	})
}
