package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/common"
)

// Handlers exposes the login and identity endpoints.
type Handlers struct {
	Service  *Service
	Validate *validator.Validate
}

// Routes mounts the public auth endpoints.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/login", h.login)
}

// MeRoutes mounts the endpoints that require an authenticated caller.
func (h *Handlers) MeRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

type loginRequest struct {
	Code string `json:"code" validate:"required"`
	PIN  string `json:"pin" validate:"required,min=4"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not parse request body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return
	}
	session, err := h.Service.Login(r.Context(), req.Code, req.PIN)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "LOGIN_FAILED", "could not log in", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": session})
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	id, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	emp, err := h.Service.Accounts.ByID(r.Context(), id)
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "EMPLOYEE_NOT_FOUND", "employee not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": emp})
}
