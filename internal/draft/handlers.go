package draft

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/checkout"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/common"
)

// Handlers exposes the draft lifecycle endpoints.
type Handlers struct {
	Service  *Service
	Validate *validator.Validate
}

// Routes mounts the draft endpoints.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.save)
	r.Post("/{draftID}/claim", h.claim)
	r.Post("/{draftID}/release", h.release)
	r.Post("/{draftID}/finalize", h.finalize)
	r.Delete("/{draftID}", h.discard)
}

type saveRequest struct {
	Label   string           `json:"label"`
	Request checkout.Request `json:"request" validate:"required"`
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.Service.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "DRAFT_LIST_FAILED", "could not list drafts", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": drafts})
}

func (h *Handlers) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not parse request body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return
	}
	cashier, _ := common.UserID(r.Context())
	d, err := h.Service.Save(r.Context(), req.Request, req.Label, cashier)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "DRAFT_SAVE_FAILED", "could not save draft", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": d})
}

func (h *Handlers) claim(w http.ResponseWriter, r *http.Request) {
	cashier, _ := common.UserID(r.Context())
	d, err := h.Service.Claim(r.Context(), chi.URLParam(r, "draftID"), cashier)
	if err != nil {
		writeDraftError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

func (h *Handlers) release(w http.ResponseWriter, r *http.Request) {
	cashier, _ := common.UserID(r.Context())
	if err := h.Service.Release(r.Context(), chi.URLParam(r, "draftID"), cashier); err != nil {
		writeDraftError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "released"})
}

func (h *Handlers) finalize(w http.ResponseWriter, r *http.Request) {
	cashier, _ := common.UserID(r.Context())
	o, err := h.Service.Finalize(r.Context(), chi.URLParam(r, "draftID"), cashier)
	if err != nil {
		writeDraftError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func (h *Handlers) discard(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Discard(r.Context(), chi.URLParam(r, "draftID")); err != nil {
		writeDraftError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "discarded"})
}

func writeDraftError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "DRAFT_NOT_FOUND", "draft not found", nil)
	case errors.Is(err, ErrAlreadyClaimed):
		common.JSONError(w, http.StatusConflict, "DRAFT_CLAIMED", err.Error(), nil)
	case errors.Is(err, ErrNotClaimedByCaller):
		common.JSONError(w, http.StatusForbidden, "DRAFT_NOT_YOURS", err.Error(), nil)
	case errors.Is(err, ErrClosed):
		common.JSONError(w, http.StatusConflict, "DRAFT_CLOSED", "draft is no longer editable", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "DRAFT_ERROR", "unexpected draft error", nil)
	}
}
