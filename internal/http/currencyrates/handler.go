package currencyrates

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/receiptwise/receiptwise/internal/currency"
	"github.com/receiptwise/receiptwise/internal/http/respond"
)

type Handler struct {
	svc *currency.Service
}

func NewHandler(svc *currency.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{base}", h.rates)
	r.Get("/{base}/convert", h.convert)
}

func (h *Handler) rates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.svc.Rates(r.Context(), chi.URLParam(r, "base"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, rates)
}

type convertResponse struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Result decimal.Decimal `json:"result"`
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	from := chi.URLParam(r, "base")
	to := q.Get("to")

	result, err := h.svc.Convert(r.Context(), amount, from, to)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, convertResponse{
		From:   from,
		To:     to,
		Amount: amount,
		Result: result,
	})
}
