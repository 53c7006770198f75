// Package quotes exposes the quote endpoints of the authenticated user.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/http/query"
	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/models"
	devisservice "github.com/solvix/solvix-devis/internal/services/devis"
)

type Service interface {
	Create(ctx context.Context, userID string, in models.DevisInput) (*models.Devis, error)
	Get(ctx context.Context, userID, id string) (*models.Devis, error)
	List(ctx context.Context, userID string, filter models.DevisFilter) ([]models.Devis, error)
	Update(ctx context.Context, userID, id string, in models.DevisInput) (*models.Devis, error)
	UpdateStatus(ctx context.Context, userID, id string, status models.DevisStatus) (*models.Devis, error)
	Delete(ctx context.Context, userID, id string) error
	Share(ctx context.Context, userID, id string) (string, error)
	Unshare(ctx context.Context, userID, id string) error
	ShareURL(token string) string
	ExportPDF(ctx context.Context, userID, id string) ([]byte, string, error)
}

// StatusRequest is the body of PATCH /quotes/{id}/status.
type StatusRequest struct {
	Status models.DevisStatus `json:"status" validate:"required,oneof=draft sent accepted rejected expired"`
}

// ShareResponse carries the public link of a shared quote.
type ShareResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
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

// Status maps devis service errors to HTTP codes. Unknown errors map to 500.
func Status(err error) int {
	switch {
	case errors.Is(err, devisservice.ErrDevisNotFound), errors.Is(err, devisservice.ErrClientNotFound):
		return http.StatusNotFound
	case errors.Is(err, devisservice.ErrQuotaExceeded), errors.Is(err, devisservice.ErrPremiumRequired):
		return http.StatusForbidden
	case errors.Is(err, devisservice.ErrInvalidStatusTransition), errors.Is(err, devisservice.ErrDevisLocked):
		return http.StatusConflict
	case errors.Is(err, devisservice.ErrDevisExpired):
		return http.StatusGone
	case errors.Is(err, devisservice.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes the response for a devis service error.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	code := Status(err)
	if code == http.StatusInternalServerError {
		log.Error("quote operation failed", sl.Err(err))
		response.Fail(w, r, code, "internal error")
		return
	}
	log.Info("quote operation rejected", sl.Err(err))
	response.Fail(w, r, code, err.Error())
}

// WritePDF sends a rendered document as an attachment.
func WritePDF(w http.ResponseWriter, doc []byte, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// Create godoc
// @Summary Create a quote
// @Description Free accounts are limited per month and to the classic template.
// @Tags Quotes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DevisInput true "Quote"
// @Success 201 {object} response.Response{data=models.Devis}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /quotes [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.Create"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.DevisInput
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid quote", sl.Err(err))
		return
	}

	d, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		Fail(w, r, log, err)
		return
	}
	log.Info("quote created", slog.String("quote_id", d.ID), slog.String("number", d.Number))
	response.JSON(w, r, http.StatusCreated, response.OKWithData(d))
}

// List godoc
// @Summary List quotes
// @Tags Quotes
// @Security BearerAuth
// @Produce json
// @Param status query string false "Status filter" Enums(draft, sent, accepted, rejected, expired)
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Response{data=[]models.Devis}
// @Router /quotes [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.List"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	limit, offset, err := query.Pagination(r)
	if err != nil {
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.service.List(r.Context(), userID, models.DevisFilter{
		Status: models.DevisStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		Fail(w, r, log, err)
		return
	}
	response.OK(w, r, list)
}

// @Summary Get a quote with its lines
// @Tags Quotes
// @Security BearerAuth
// @Param id path string true "Quote id"
// @Success 200 {object} response.Response{data=models.Devis}
// @Failure 404 {object} response.ErrorResponse
// @Router /quotes/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.Get"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		Fail(w, r, log, err)
		return
	}
	response.OK(w, r, d)
}

// @Summary Replace a quote and its lines
// @Tags Quotes
// @Security BearerAuth
// @Param id path string true "Quote id"
// @Param request body models.DevisInput true "Quote"
// @Success 200 {object} response.Response{data=models.Devis}
// @Failure 409 {object} response.ErrorResponse
// @Router /quotes/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.Update"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.DevisInput
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid quote", sl.Err(err))
		return
	}

	d, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		Fail(w, r, log, err)
		return
	}
	response.OK(w, r, d)
}

// UpdateStatus godoc
// @Summary Change the status of a quote
// @Description accepted is final. rejected and expired quotes can only go back to draft.
// @Tags Quotes
// @Security BearerAuth
// @Param id path string true "Quote id"
// @Param request body StatusRequest true "New status"
// @Success 200 {object} response.Response{data=models.Devis}
// @Failure 409 {object} response.ErrorResponse
// @Router /quotes/{id}/status [patch]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.UpdateStatus"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid status", sl.Err(err))
		return
	}

	d, err := h.service.UpdateStatus(r.Context(), userID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		Fail(w, r, log, err)
		return
	}
	response.OK(w, r, d)
}

// @Summary Delete a quote
// @Tags Quotes
// @Security BearerAuth
// @Param id path string true "Quote id"
// @Success 200 {object} response.Response
// @Router /quotes/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.Delete"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		Fail(w, r, log, err)
		return
	}
	response.OK(w, r, map[string]any{"id": id, "deleted": true})
}

// @Summary Download a quote as PDF
// @Tags Quotes
// @Security BearerAuth
// @Produce application/pdf
// @Param id path string true "Quote id"
// @Success 200 {file} binary
// @Router /quotes/{id}/pdf [get]
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.PDF"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	doc, filename, err := h.service.ExportPDF(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		Fail(w, r, log, err)
		return
	}
	WritePDF(w, doc, filename)
}

// Share godoc
// @Summary Publish a quote
// @Description Returns the public link. Sharing twice returns the same link.
// @Tags Quotes
// @Security BearerAuth
// @Param id path string true "Quote id"
// @Success 200 {object} response.Response{data=ShareResponse}
// @Router /quotes/{id}/share [post]
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.Share"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	token, err := h.service.Share(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		Fail(w, r, log, err)
		return
	}
	response.OK(w, r, ShareResponse{Token: token, URL: h.service.ShareURL(token)})
}

// @Summary Revoke the public link of a quote
// @Tags Quotes
// @Security BearerAuth
// @Param id path string true "Quote id"
// @Success 200 {object} response.Response
// @Router /quotes/{id}/share [delete]
func (h *Handler) Unshare(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quotes.Unshare"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	if err := h.service.Unshare(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		Fail(w, r, log, err)
		return
	}
	response.OK(w, r, map[string]bool{"shared": false})
}
