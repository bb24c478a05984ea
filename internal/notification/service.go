package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/realtime"
	"github.com/receiptwise/receiptwise/internal/state"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=notification
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]*Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, at time.Time) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LocalDispatcher displays a freshly arrived notification on the device.
type LocalDispatcher interface {
	Dispatch(n *Notification)
}

// ListFilter narrows a notification page. Zero values mean "no filter";
// PerPage defaults to DefaultPerPage.
type ListFilter struct {
	TeamID     *uuid.UUID
	Type       *Type
	Priority   *Priority
	UnreadOnly bool
	Since      *time.Time
	Until      *time.Time
	Page       int
	PerPage    int
}

const DefaultPerPage = 50

// Counts are the derived counters, recomputed in full on every list
// replacement.
type Counts struct {
	Unread             int
	HighPriorityUnread int
}

// Service is the notification synchronizer: it keeps the in-memory list in
// step with the backend, feeds new arrivals to the local dispatcher and
// exposes read/archive/delete as optimistic mutations with rollback.
type Service struct {
	repo       Repository
	dispatcher LocalDispatcher
	container  *state.Container[[]*Notification]
	logger     *slog.Logger

	mu         sync.Mutex
	lastFilter ListFilter
	counts     Counts
}

func NewService(repo Repository, dispatcher LocalDispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		container:  state.NewContainer[[]*Notification](),
		logger:     logger,
	}
}

// Container exposes the observable list for UI consumption.
func (s *Service) Container() *state.Container[[]*Notification] {
	return s.container
}

// Load fetches a page with the given filter and replaces the in-memory
// list. A newer Load supersedes the result of a still-running older one.
func (s *Service) Load(ctx context.Context, filter ListFilter) error {
	if filter.PerPage <= 0 {
		filter.PerPage = DefaultPerPage
	}

	s.mu.Lock()
	s.lastFilter = filter
	s.mu.Unlock()

	token := s.container.Begin()

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		err = apperr.Translate(err)
	}

	if s.container.Complete(token, items, err) && err == nil {
		s.recount()
	}

	return err
}

// Refresh re-runs the most recent Load.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	filter := s.lastFilter
	s.mu.Unlock()

	return s.Load(ctx, filter)
}

// Counts returns the derived unread counters.
func (s *Service) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counts
}

// Watch subscribes the synchronizer to the user's notification rows on the
// realtime bridge. The caller owns the returned subscription.
func (s *Service) Watch(bridge *realtime.Bridge, userID uuid.UUID) (*realtime.Subscription, error) {
	return bridge.Subscribe("notifications",
		&realtime.Filter{Column: "user_id", Value: userID.String()},
		realtime.Callbacks{
			OnInsert: s.HandleInsert,
			OnUpdate: s.HandleUpdate,
			OnDelete: s.HandleDelete,
		})
}

// HandleInsert processes a new-notification event: display it locally and
// merge it into the list (prepend, deduplicated by ID).
func (s *Service) HandleInsert(row realtime.Row) {
	n, err := FromRow(row)
	if err != nil {
		s.logger.Warn("dropping malformed notification event", "error", err)
		return
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(n)
	}

	s.container.Mutate(func(items []*Notification) []*Notification {
		return mergeFront(items, n)
	})
	s.recount()
}

func (s *Service) HandleUpdate(row realtime.Row) {
	n, err := FromRow(row)
	if err != nil {
		s.logger.Warn("dropping malformed notification event", "error", err)
		return
	}

	s.container.Mutate(func(items []*Notification) []*Notification {
		// Archiving server-side removes the row from the default listing.
		if n.ArchivedAt != nil {
			return remove(items, n.ID)
		}

		return replace(items, n)
	})
	s.recount()
}

func (s *Service) HandleDelete(row realtime.Row) {
	n, err := FromRow(row)
	if err != nil {
		s.logger.Warn("dropping malformed notification event", "error", err)
		return
	}

	s.container.Mutate(func(items []*Notification) []*Notification {
		return remove(items, n.ID)
	})
	s.recount()
}

// MarkRead sets the read timestamp optimistically, then confirms remotely;
// on failure the previous state is restored. Already-read notifications
// are a no-op.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	target := s.find(id)
	if target == nil || !target.Unread() {
		return nil
	}

	now := time.Now().UTC()

	snapshot := s.container.Snapshot()
	s.container.Mutate(func(items []*Notification) []*Notification {
		return patch(items, id, func(n Notification) Notification {
			n.ReadAt = &now
			return n
		})
	})
	s.recount()

	if err := s.repo.MarkRead(ctx, id, now); err != nil {
		terr := apperr.Translate(err)
		s.container.Restore(snapshot, terr)
		s.recount()

		return terr
	}

	return nil
}

// MarkAllRead marks every unread notification read.
func (s *Service) MarkAllRead(ctx context.Context) error {
	now := time.Now().UTC()

	snapshot := s.container.Snapshot()
	s.container.Mutate(func(items []*Notification) []*Notification {
		out := make([]*Notification, len(items))
		for i, n := range items {
			if n.Unread() {
				clone := *n
				clone.ReadAt = &now
				out[i] = &clone
			} else {
				out[i] = n
			}
		}

		return out
	})
	s.recount()

	if err := s.repo.MarkAllRead(ctx, now); err != nil {
		terr := apperr.Translate(err)
		s.container.Restore(snapshot, terr)
		s.recount()

		return terr
	}

	return nil
}

// Archive removes the notification from the default listing.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()

	snapshot := s.container.Snapshot()
	s.container.Mutate(func(items []*Notification) []*Notification {
		return remove(items, id)
	})
	s.recount()

	if err := s.repo.Archive(ctx, id, now); err != nil {
		terr := apperr.Translate(err)
		s.container.Restore(snapshot, terr)
		s.recount()

		return terr
	}

	return nil
}

// Delete removes the notification permanently.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	snapshot := s.container.Snapshot()
	s.container.Mutate(func(items []*Notification) []*Notification {
		return remove(items, id)
	})
	s.recount()

	if err := s.repo.Delete(ctx, id); err != nil {
		terr := apperr.Translate(err)
		s.container.Restore(snapshot, terr)
		s.recount()

		return terr
	}

	return nil
}

func (s *Service) find(id uuid.UUID) *Notification {
	for _, n := range s.container.Data() {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// recount recomputes the derived counters from the full list.
func (s *Service) recount() {
	items := s.container.Data()

	var c Counts

	for _, n := range items {
		if !n.Unread() {
			continue
		}

		c.Unread++

		if n.Priority == PriorityHigh {
			c.HighPriorityUnread++
		}
	}

	s.mu.Lock()
	s.counts = c
	s.mu.Unlock()
}

func mergeFront(items []*Notification, n *Notification) []*Notification {
	for i, existing := range items {
		if existing.ID == n.ID {
			out := append([]*Notification(nil), items...)
			out[i] = n

			return out
		}
	}

	out := make([]*Notification, 0, len(items)+1)
	out = append(out, n)
	out = append(out, items...)

	return out
}

func replace(items []*Notification, n *Notification) []*Notification {
	out := append([]*Notification(nil), items...)
	for i, existing := range out {
		if existing.ID == n.ID {
			out[i] = n
			break
		}
	}

	return out
}

func remove(items []*Notification, id uuid.UUID) []*Notification {
	out := make([]*Notification, 0, len(items))
	for _, n := range items {
		if n.ID != id {
			out = append(out, n)
		}
	}

	return out
}

func patch(items []*Notification, id uuid.UUID, fn func(Notification) Notification) []*Notification {
	out := append([]*Notification(nil), items...)
	for i, n := range out {
		if n.ID == id {
			updated := fn(*n)
			out[i] = &updated

			break
		}
	}

	return out
}
