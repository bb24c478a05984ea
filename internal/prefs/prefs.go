// Package prefs persists user preferences in the on-device cache and
// answers the dispatcher's display-gating questions.
package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/receiptwise/receiptwise/internal/localstore"
	"github.com/receiptwise/receiptwise/internal/notification"
)

const (
	keyAppearance    = "appearance"
	keyNotifications = "notifications"
)

// Theme selects the UI color scheme.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// Appearance holds the display preferences.
type Appearance struct {
	Theme           Theme  `json:"theme"`
	Locale          string `json:"locale"`
	DisplayCurrency string `json:"display_currency"`
}

// NotificationPrefs holds the push toggles. Types absent from Muted are
// enabled, so a fresh install receives everything.
type NotificationPrefs struct {
	Push  bool                       `json:"push"`
	Muted map[notification.Type]bool `json:"muted,omitempty"`
}

func defaultAppearance() Appearance {
	return Appearance{Theme: ThemeSystem, Locale: "en-US", DisplayCurrency: "USD"}
}

func defaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{Push: true}
}

// Service keeps preferences in memory and writes every change through
// to the local store.
type Service struct {
	store  *localstore.Store
	logger *slog.Logger

	mu           sync.RWMutex
	appearance   Appearance
	notification NotificationPrefs
}

// NewService loads persisted preferences, falling back to defaults for
// anything never saved.
func NewService(store *localstore.Store, logger *slog.Logger) (*Service, error) {
	s := &Service{
		store:        store,
		logger:       logger,
		appearance:   defaultAppearance(),
		notification: defaultNotificationPrefs(),
	}

	if err := s.load(keyAppearance, &s.appearance); err != nil {
		return nil, err
	}

	if err := s.load(keyNotifications, &s.notification); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) load(key string, dest any) error {
	err := s.store.GetPreference(key, dest)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return fmt.Errorf("loading %s preferences: %w", key, err)
	}

	return nil
}

// Appearance returns the current display preferences.
func (s *Service) Appearance() Appearance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.appearance
}

// SetAppearance replaces the display preferences and persists them.
func (s *Service) SetAppearance(a Appearance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.PutPreference(keyAppearance, a); err != nil {
		return fmt.Errorf("saving appearance preferences: %w", err)
	}

	s.appearance = a

	return nil
}

// SetPushEnabled flips the global push toggle.
func (s *Service) SetPushEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.notification
	next.Push = enabled

	return s.saveNotificationLocked(next)
}

// SetTypeEnabled mutes or unmutes one notification type.
func (s *Service) SetTypeEnabled(t notification.Type, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.notification
	next.Muted = make(map[notification.Type]bool, len(s.notification.Muted)+1)
	for k, v := range s.notification.Muted {
		next.Muted[k] = v
	}

	if enabled {
		delete(next.Muted, t)
	} else {
		next.Muted[t] = true
	}

	return s.saveNotificationLocked(next)
}

func (s *Service) saveNotificationLocked(next NotificationPrefs) error {
	if err := s.store.PutPreference(keyNotifications, next); err != nil {
		return fmt.Errorf("saving notification preferences: %w", err)
	}

	s.notification = next

	return nil
}

// PushEnabled reports the global push toggle.
func (s *Service) PushEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.notification.Push
}

// TypeEnabled reports whether notifications of type t may be shown.
func (s *Service) TypeEnabled(t notification.Type) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return !s.notification.Muted[t]
}

var _ notification.Preferences = (*Service)(nil)
