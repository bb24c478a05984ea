package receipt

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/receiptwise/receiptwise/internal/http/respond"
	"github.com/receiptwise/receiptwise/internal/receipt"
)

type Handler struct {
	svc       *receipt.Service
	maxMemory int64
}

func NewHandler(svc *receipt.Service, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, maxMemory: maxUploadBytes}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.capture)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.edit)
	r.Post("/{id}/archive", h.archive)
	r.Delete("/{id}", h.delete)
}

// capture accepts a multipart form with an "image" part plus optional
// user_id, team_id and currency fields.
func (h *Handler) capture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "an image part is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "reading image", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(r.FormValue("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	params := receipt.CaptureParams{
		UserID:      userID,
		Image:       image,
		ContentType: header.Header.Get("Content-Type"),
		Currency:    r.FormValue("currency"),
	}

	if s := r.FormValue("team_id"); s != "" {
		teamID, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid team_id", http.StatusBadRequest)
			return
		}

		params.TeamID = ptr(teamID)
	}

	created, err := h.svc.Capture(r.Context(), params)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, created)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := receipt.ListFilter{}
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		filter.Status = ptr(receipt.Status(s))
	}

	if s := q.Get("processing_status"); s != "" {
		filter.Processing = ptr(receipt.ProcessingStatus(s))
	}

	if s := q.Get("category_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid category_id", http.StatusBadRequest)
			return
		}

		filter.CategoryID = ptr(id)
	}

	if s := q.Get("team_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid team_id", http.StatusBadRequest)
			return
		}

		filter.TeamID = ptr(id)
	}

	if s := q.Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = ptr(t)
		}
	}

	if s := q.Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = ptr(t)
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
		items = []*receipt.Receipt{}
	}

	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, rec)
}

type editReceiptRequest struct {
	Merchant      *string          `json:"merchant_name,omitempty"`
	Date          *time.Time       `json:"transaction_date,omitempty"`
	Total         *decimal.Decimal `json:"total_amount,omitempty"`
	Tax           *decimal.Decimal `json:"tax_amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req editReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Edit(r.Context(), id, receipt.EditParams{
		Merchant:      req.Merchant,
		Date:          req.Date,
		Total:         req.Total,
		Tax:           req.Tax,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, rec)
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
