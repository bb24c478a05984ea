package notification

import (
	"log/slog"
	"time"
)

// Notifier is the platform delivery mechanism for a local notification.
type Notifier interface {
	Show(n LocalNotification) error
}

// Preferences gates display: a global push toggle plus a per-type toggle.
type Preferences interface {
	PushEnabled() bool
	TypeEnabled(t Type) bool
}

// LocalNotification is what actually gets displayed. Payload travels with
// the notification so a tap can deep-link back into the app.
type LocalNotification struct {
	ID      string
	Channel Channel
	Title   string
	Body    string
	Payload map[string]string
}

// Dispatcher routes a notification to its platform channel, subject to the
// user's preferences.
type Dispatcher struct {
	notifier Notifier
	prefs    Preferences
	logger   *slog.Logger
}

func NewDispatcher(notifier Notifier, prefs Preferences, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{notifier: notifier, prefs: prefs, logger: logger}
}

// Dispatch displays n unless preferences suppress it. Expired
// notifications are never displayed.
func (d *Dispatcher) Dispatch(n *Notification) {
	if n.Expired(time.Now()) {
		return
	}

	if !d.prefs.PushEnabled() || !d.prefs.TypeEnabled(n.Type) {
		return
	}

	local := LocalNotification{
		ID:      n.ID.String(),
		Channel: n.Type.Channel(),
		Title:   n.Title,
		Body:    n.Message,
		Payload: map[string]string{
			"notification_id": n.ID.String(),
			"type":            string(n.Type),
			"action_link":     n.ActionLink,
		},
	}

	if err := d.notifier.Show(local); err != nil {
		d.logger.Warn("displaying local notification", "id", n.ID, "error", err)
	}
}
