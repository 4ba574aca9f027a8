package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/catalog"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/common"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

// Handlers exposes the checkout endpoint.
type Handlers struct {
	Service  *Service
	Validate *validator.Validate
}

// Routes mounts the checkout endpoint.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/", h.checkout)
}

func (h *Handlers) checkout(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not parse request body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return
	}
	cashier, _ := common.UserID(r.Context())
	o, err := h.Service.Checkout(r.Context(), req, cashier)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pricing.ErrPriceNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRICE_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, pricing.ErrBelowMinimumOrder):
		common.JSONError(w, http.StatusUnprocessableEntity, "BELOW_MINIMUM_ORDER", err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "CATALOG_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrInactiveProduct):
		common.JSONError(w, http.StatusConflict, "PRODUCT_INACTIVE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "CHECKOUT_FAILED", "unexpected checkout error", nil)
	}
}
