package category

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/receiptwise/receiptwise/internal/category"
	"github.com/receiptwise/receiptwise/internal/http/respond"
)

type Handler struct {
	svc *category.Service
}

func NewHandler(svc *category.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/defaults", h.ensureDefaults)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func scopeParams(r *http.Request) (category.Scope, uuid.UUID, error) {
	scope := category.Scope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = category.ScopePersonal
	}

	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		return "", uuid.Nil, err
	}

	return scope, ownerID, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ownerID, err := scopeParams(r)
	if err != nil {
		http.Error(w, "invalid owner_id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Load(r.Context(), scope, ownerID); err != nil {
		respond.Error(w, err)
		return
	}

	items := h.svc.Container().Data()
	if items == nil {
		items = []*category.Category{}
	}

	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler) ensureDefaults(w http.ResponseWriter, r *http.Request) {
	scope, ownerID, err := scopeParams(r)
	if err != nil {
		http.Error(w, "invalid owner_id", http.StatusBadRequest)
		return
	}

	if err := h.svc.EnsureDefaults(r.Context(), scope, ownerID); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateCategoryRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.svc.Update(r.Context(), id, category.UpdateParams{
		Name:  req.Name,
		Color: req.Color,
		Icon:  req.Icon,
	})
	if err != nil {
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
