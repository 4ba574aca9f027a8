package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/common"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

// Handlers exposes the order read and workflow endpoints.
type Handlers struct {
	Service *Service
}

// Routes mounts the order endpoints on a router.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{orderID}", h.get)
	r.Post("/{orderID}/payments", h.recordPayment)
	r.Post("/{orderID}/production", h.advanceProduction)
	r.Post("/{orderID}/cancel", h.cancel)
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	orders, total, err := h.Service.List(r.Context(), status, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ORDER_LIST_FAILED", "could not list orders", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

type paymentRequest struct {
	Amount pricing.Money `json:"amount"`
}

func (h *Handlers) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not parse request body", nil)
		return
	}
	o, err := h.Service.RecordPayment(r.Context(), chi.URLParam(r, "orderID"), req.Amount)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

type productionRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) advanceProduction(w http.ResponseWriter, r *http.Request) {
	var req productionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not parse request body", nil)
		return
	}
	o, err := h.Service.AdvanceProduction(r.Context(), chi.URLParam(r, "orderID"), ProductionStatus(req.Status))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not parse request body", nil)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		common.JSONError(w, http.StatusBadRequest, "CANCEL_REASON_REQUIRED", "a cancel reason is required", nil)
		return
	}
	o, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrMalformedRecord):
		common.JSONError(w, http.StatusUnprocessableEntity, "ORDER_MALFORMED", "stored order record is malformed", nil)
	case errors.Is(err, ErrInvalidPayment):
		common.JSONError(w, http.StatusBadRequest, "INVALID_PAYMENT", "payment amount must be positive", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, ErrOrderClosed):
		common.JSONError(w, http.StatusConflict, "ORDER_CLOSED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "ORDER_ERROR", "unexpected order error", nil)
	}
}
