// Package notifications serves the email preferences of the current user.
package notifications

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
	Get(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	Update(ctx context.Context, userID string, p models.NotificationPreferences) (*models.NotificationPreferences, error)
}

// PreferencesRequest switches each email type on or off. Omitted fields are
// treated as false.
type PreferencesRequest struct {
	EmailNewQuote           bool `json:"email_new_quote"`
	EmailQuoteAccepted      bool `json:"email_quote_accepted"`
	EmailQuoteStatusChanged bool `json:"email_quote_status_changed"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// @Summary Email notification preferences
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.NotificationPreferences}
// @Router /notifications/preferences [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.Get"

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to load preferences", sl.Op(op),
			slog.String("request_id", middleware.GetReqID(r.Context())), sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	response.OK(w, r, p)
}

// @Summary Update email notification preferences
// @Tags Notifications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body PreferencesRequest true "Preferences"
// @Success 200 {object} response.Response{data=models.NotificationPreferences}
// @Router /notifications/preferences [put]
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.Put"
	log := h.log.With(sl.Op(op), slog.String("request_id", middleware.GetReqID(r.Context())))

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req PreferencesRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid preferences", sl.Err(err))
		return
	}

	p, err := h.service.Update(r.Context(), userID, models.NotificationPreferences{
		EmailNewQuote:           req.EmailNewQuote,
		EmailQuoteAccepted:      req.EmailQuoteAccepted,
		EmailQuoteStatusChanged: req.EmailQuoteStatusChanged,
	})
	if err != nil {
		log.Error("failed to save preferences", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	response.OK(w, r, p)
}
