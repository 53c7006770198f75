// Package admin manages premium activation codes. Every route is mounted
// behind middlewarectx.AdminOnly.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/http/query"
	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/models"
	activationservice "github.com/solvix/solvix-devis/internal/services/activation"
)

type Service interface {
	Generate(ctx context.Context, adminID string, count int, notes string) ([]models.ActivationCode, error)
	List(ctx context.Context, filter models.CodeFilter) ([]models.ActivationCode, error)
	Stats(ctx context.Context) (*models.ActivationCodeStats, error)
	MarkAsSold(ctx context.Context, rawCode, customerEmail, customerName string) (*models.ActivationCode, error)
	Revoke(ctx context.Context, rawCode, reason string) (*models.ActivationCode, error)
}

type GenerateRequest struct {
	Count int    `json:"count" validate:"required,min=1,max=500"`
	Notes string `json:"notes" validate:"max=1000"`
}

type SellRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email,max=254"`
	CustomerName  string `json:"customer_name" validate:"max=200"`
}

type RevokeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(sl.Op(op), slog.String("request_id", middleware.GetReqID(r.Context())))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, activationservice.ErrInvalidCount), errors.Is(err, activationservice.ErrInvalidCodeFormat):
		response.Fail(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, activationservice.ErrCodeNotFound):
		response.Fail(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, activationservice.ErrCodeNotSellable), errors.Is(err, activationservice.ErrCodeAlreadyRevoked):
		response.Fail(w, r, http.StatusConflict, err.Error())
	default:
		log.Error("admin operation failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "internal error")
	}
}

// Generate godoc
// @Summary Generate a batch of activation codes
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Batch"
// @Success 201 {object} response.Response{data=[]models.ActivationCode}
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/codes [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Generate"
	log := h.logger(r, op)

	adminID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid generate request", sl.Err(err))
		return
	}

	codes, err := h.service.Generate(r.Context(), adminID, req.Count, req.Notes)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("activation codes generated", slog.Int("count", len(codes)), slog.String("admin_id", adminID))
	response.JSON(w, r, http.StatusCreated, response.OKWithData(codes))
}

// List godoc
// @Summary List activation codes
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "Status filter" Enums(AVAILABLE, SOLD, USED, REVOKED)
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Response{data=[]models.ActivationCode}
// @Router /admin/codes [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.List"
	log := h.logger(r, op)

	limit, offset, err := query.Pagination(r)
	if err != nil {
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := models.CodeStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		response.Fail(w, r, http.StatusUnprocessableEntity, "unknown status "+string(status))
		return
	}

	codes, err := h.service.List(r.Context(), models.CodeFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.OK(w, r, codes)
}

// Stats godoc
// @Summary Count activation codes per status
// @Tags Admin
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.ActivationCodeStats}
// @Router /admin/codes/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Stats"
	log := h.logger(r, op)

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.OK(w, r, stats)
}

// Sell godoc
// @Summary Mark a code as sold
// @Tags Admin
// @Security BearerAuth
// @Param code path string true "Activation code"
// @Param request body SellRequest true "Customer"
// @Success 200 {object} response.Response{data=models.ActivationCode}
// @Failure 409 {object} response.ErrorResponse
// @Router /admin/codes/{code}/sell [post]
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Sell"
	log := h.logger(r, op)

	var req SellRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid sell request", sl.Err(err))
		return
	}

	code, err := h.service.MarkAsSold(r.Context(), chi.URLParam(r, "code"), req.CustomerEmail, req.CustomerName)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.OK(w, r, code)
}

// Revoke godoc
// @Summary Revoke a code
// @Description Revoking a used code removes the premium flag of its holder.
// @Tags Admin
// @Security BearerAuth
// @Param code path string true "Activation code"
// @Param request body RevokeRequest true "Reason"
// @Success 200 {object} response.Response{data=models.ActivationCode}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /admin/codes/{code}/revoke [post]
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.Revoke"
	log := h.logger(r, op)

	var req RevokeRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid revoke request", sl.Err(err))
		return
	}

	code, err := h.service.Revoke(r.Context(), chi.URLParam(r, "code"), req.Reason)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("activation code revoked", slog.String("code", code.Code))
	response.OK(w, r, code)
}
