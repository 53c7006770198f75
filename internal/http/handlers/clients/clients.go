// Package clients implements CRUD endpoints for the clients of the current user.
package clients

import (
	"context"
	"errors"
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
	clientservice "github.com/solvix/solvix-devis/internal/services/client"
)

type Service interface {
	Create(ctx context.Context, userID string, in models.ClientInput) (*models.Client, error)
	Get(ctx context.Context, userID, id string) (*models.Client, error)
	List(ctx context.Context, userID string, limit, offset int) ([]models.Client, error)
	Update(ctx context.Context, userID, id string, in models.ClientInput) (*models.Client, error)
	Delete(ctx context.Context, userID, id string) error
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
	if errors.Is(err, clientservice.ErrClientNotFound) {
		response.Fail(w, r, http.StatusNotFound, "client not found")
		return
	}
	log.Error("client operation failed", sl.Err(err))
	response.Fail(w, r, http.StatusInternalServerError, "internal error")
}

// Create godoc
// @Summary Create a client
// @Tags Clients
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.ClientInput true "Client"
// @Success 201 {object} response.Response{data=models.Client}
// @Failure 422 {object} response.ErrorResponse
// @Router /clients [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.clients.Create"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.ClientInput
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid client", sl.Err(err))
		return
	}

	c, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(c))
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Response{data=[]models.Client}
// @Router /clients [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.clients.List"
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

	list, err := h.service.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.OK(w, r, list)
}

// @Summary Get a client
// @Tags Clients
// @Security BearerAuth
// @Param id path string true "Client id"
// @Success 200 {object} response.Response{data=models.Client}
// @Failure 404 {object} response.ErrorResponse
// @Router /clients/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.clients.Get"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.OK(w, r, c)
}

// @Summary Replace a client
// @Tags Clients
// @Security BearerAuth
// @Param id path string true "Client id"
// @Param request body models.ClientInput true "Client"
// @Success 200 {object} response.Response{data=models.Client}
// @Failure 404 {object} response.ErrorResponse
// @Router /clients/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.clients.Update"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.ClientInput
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid client", sl.Err(err))
		return
	}

	c, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.OK(w, r, c)
}

// @Summary Delete a client
// @Tags Clients
// @Security BearerAuth
// @Param id path string true "Client id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /clients/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.clients.Delete"
	log := h.logger(r, op)

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.OK(w, r, map[string]any{"id": id, "deleted": true})
}
