package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/common"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

// Handlers exposes catalog reads and the admin CRUD endpoints.
type Handlers struct {
	Service  *Service
	Validate *validator.Validate
}

// Routes mounts the public catalog endpoints.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/finishings", h.listFinishings)
}

// AdminRoutes mounts the write endpoints; callers wrap them in auth middleware.
func (h *Handlers) AdminRoutes(r chi.Router) {
	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deactivateProduct)
	r.Post("/finishings", h.createFinishing)
}

func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.Products(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_LIST_FAILED", "could not list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

func (h *Handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Product(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

func (h *Handlers) listFinishings(w http.ResponseWriter, r *http.Request) {
	finishings, err := h.Service.Finishings(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_LIST_FAILED", "could not list finishings", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": finishings})
}

type productRequest struct {
	Name     string        `json:"name" validate:"required,min=2"`
	Category string        `json:"category"`
	Unit     string        `json:"unit"`
	Rules    pricing.Rules `json:"rules" validate:"required"`
	Active   *bool         `json:"active"`
}

func (h *Handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p, err := h.Service.CreateProduct(r.Context(), Product{
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
		Rules:    req.Rules,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

func (h *Handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p := Product{
		ID:       chi.URLParam(r, "productID"),
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
		Rules:    req.Rules,
		Active:   req.Active == nil || *req.Active,
	}
	updated, err := h.Service.UpdateProduct(r.Context(), p)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

func (h *Handlers) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.DeactivateProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

type finishingRequest struct {
	Name     string        `json:"name" validate:"required,min=2"`
	Category string        `json:"category"`
	Price    pricing.Money `json:"price" validate:"gte=0"`
	PerUnit  bool          `json:"per_unit"`
	MinQty   int           `json:"min_qty" validate:"gte=0"`
}

func (h *Handlers) createFinishing(w http.ResponseWriter, r *http.Request) {
	var req finishingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not parse request body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return
	}
	f, err := h.Service.CreateFinishing(r.Context(), Finishing{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		PerUnit:  req.PerUnit,
		MinQty:   req.MinQty,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": f})
}

func (h *Handlers) decodeProduct(w http.ResponseWriter, r *http.Request) (productRequest, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not parse request body", nil)
		return req, false
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return req, false
	}
	return req, true
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "CATALOG_NOT_FOUND", "catalog entry not found", nil)
	case errors.Is(err, pricing.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "INVALID_RULES", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_ERROR", "unexpected catalog error", nil)
	}
}
