// Package profile serves the company profile of the current user.
package profile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/models"
)

type Service interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, userID string, p models.Profile) (*models.Profile, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Get godoc
// @Summary Company profile of the current user
// @Tags Profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.Profile}
// @Router /profile [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.Get"
	log := h.log.With(sl.Op(op), slog.String("request_id", middleware.GetReqID(r.Context())))

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to load profile")
		return
	}
	response.OK(w, r, p)
}

// Put godoc
// @Summary Create or replace the company profile
// @Tags Profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.Profile true "Profile"
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 422 {object} response.ErrorResponse
// @Router /profile [put]
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.Put"
	log := h.log.With(sl.Op(op), slog.String("request_id", middleware.GetReqID(r.Context())))

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.Profile
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid profile", sl.Err(err))
		return
	}

	p, err := h.service.Upsert(r.Context(), userID, req)
	if err != nil {
		log.Error("failed to save profile", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to save profile")
		return
	}
	log.Info("profile saved", slog.String("user_id", userID))
	response.OK(w, r, p)
}
