package claim

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/receiptwise/receiptwise/internal/claim"
	"github.com/receiptwise/receiptwise/internal/http/respond"
)

type Handler struct {
	svc *claim.Service
}

func NewHandler(svc *claim.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/pay", h.markPaid)
}

type createClaimRequest struct {
	TeamID      uuid.UUID       `json:"team_id"`
	ClaimantID  uuid.UUID       `json:"claimant_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	Priority    claim.Priority  `json:"priority"`
	Attachments []string        `json:"attachments,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.Create(r.Context(), claim.CreateParams{
		TeamID:      req.TeamID,
		ClaimantID:  req.ClaimantID,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		CategoryID:  req.CategoryID,
		Priority:    req.Priority,
		Attachments: req.Attachments,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, c)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := claim.ListFilter{}
	q := r.URL.Query()

	if s := q.Get("team_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid team_id", http.StatusBadRequest)
			return
		}

		filter.TeamID = ptr(id)
	}

	if s := q.Get("status"); s != "" {
		filter.Status = ptr(claim.Status(s))
	}

	if s := q.Get("priority"); s != "" {
		filter.Priority = ptr(claim.Priority(s))
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
		items = []*claim.Claim{}
	}

	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, c)
}

type transitionRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
	Note    string    `json:"note,omitempty"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	fn func(id, actor uuid.UUID, note string) (*claim.Claim, error),
) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := fn(id, req.ActorID, req.Note)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actor uuid.UUID, _ string) (*claim.Claim, error) {
		return h.svc.Submit(r.Context(), id, actor)
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actor uuid.UUID, note string) (*claim.Claim, error) {
		return h.svc.Approve(r.Context(), id, actor, note)
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actor uuid.UUID, note string) (*claim.Claim, error) {
		return h.svc.Reject(r.Context(), id, actor, note)
	})
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actor uuid.UUID, _ string) (*claim.Claim, error) {
		return h.svc.MarkPaid(r.Context(), id, actor)
	})
}

func ptr[T any](v T) *T { return &v }
