package notification

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/http/respond"
	"github.com/receiptwise/receiptwise/internal/notification"
)

type Handler struct {
	svc *notification.Service
}

func NewHandler(svc *notification.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/counts", h.counts)
	r.Post("/read-all", h.markAllRead)
	r.Patch("/{id}/read", h.markRead)
	r.Patch("/{id}/archive", h.archive)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := notification.ListFilter{}
	q := r.URL.Query()

	if s := q.Get("team_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid team_id", http.StatusBadRequest)
			return
		}

		filter.TeamID = ptr(id)
	}

	if s := q.Get("type"); s != "" {
		filter.Type = ptr(notification.Type(s))
	}

	if s := q.Get("priority"); s != "" {
		filter.Priority = ptr(notification.Priority(s))
	}

	if q.Get("unread") == "true" {
		filter.UnreadOnly = true
	}

	if s := q.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filter.Since = ptr(t)
		}
	}

	if s := q.Get("until"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filter.Until = ptr(t)
		}
	}

	if s := q.Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Page = n
		}
	}

	if s := q.Get("per_page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.PerPage = n
		}
	}

	if err := h.svc.Load(r.Context(), filter); err != nil {
		respond.Error(w, err)
		return
	}

	items := h.svc.Container().Data()
	if items == nil {
		items = []*notification.Notification{}
	}

	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler) counts(w http.ResponseWriter, r *http.Request) {
	counts := h.svc.Counts()

	respond.JSON(w, http.StatusOK, map[string]int{
		"unread":               counts.Unread,
		"high_priority_unread": counts.HighPriorityUnread,
	})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.MarkRead(r.Context(), id); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkAllRead(r.Context()); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Archive(r.Context(), id); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func ptr[T any](v T) *T { return &v }
