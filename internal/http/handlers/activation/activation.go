// Package activation lets a user redeem a premium activation code.
package activation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/fingerprint"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/models"
	activationservice "github.com/solvix/solvix-devis/internal/services/activation"
)

type Service interface {
	Activate(ctx context.Context, userID, rawCode, fingerprint string) (*models.ActivationResult, error)
}

type Request struct {
	Code string `json:"code" validate:"required,max=64"`
}

// Rejection is the data attached to a refused activation.
type Rejection struct {
	AttemptsLeft *int       `json:"attempts_left,omitempty"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Activate a premium code
// @Description Codes look like SOLVIX-XXXXXXXX. Five failed attempts within 24 hours block activation for 24 hours.
// @Tags Activation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param X-Device-Fingerprint header string false "Device fingerprint"
// @Param request body Request true "Code"
// @Success 200 {object} response.Response{data=models.ActivationResult}
// @Failure 400 {object} response.Response{data=Rejection}
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 429 {object} response.Response{data=Rejection}
// @Router /activation/activate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.activation.Activate"
	log := h.log.With(sl.Op(op), slog.String("request_id", middleware.GetReqID(r.Context())))

	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	var req Request
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid activation request", sl.Err(err))
		return
	}

	res, err := h.service.Activate(r.Context(), userID, req.Code, fingerprint.FromRequest(r))
	if err == nil {
		log.Info("premium activated", slog.String("user_id", userID))
		response.OK(w, r, res)
		return
	}

	var blocked *activationservice.BlockedError
	var rejected *activationservice.RejectedError
	switch {
	case errors.Is(err, activationservice.ErrInvalidCodeFormat):
		response.Fail(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &blocked):
		until := blocked.Until.UTC()
		response.JSON(w, r, http.StatusTooManyRequests, response.Response{
			Status: response.StatusError,
			Error:  activationservice.ErrActivationBlocked.Error(),
			Data:   Rejection{BlockedUntil: &until},
		})
	case errors.As(err, &rejected):
		left := rejected.AttemptsLeft
		status := http.StatusBadRequest
		if rejected.BlockedUntil != nil {
			status = http.StatusTooManyRequests
		}
		response.JSON(w, r, status, response.Response{
			Status: response.StatusError,
			Error:  activationservice.ErrCodeNotActivatable.Error(),
			Data:   Rejection{AttemptsLeft: &left, BlockedUntil: rejected.BlockedUntil},
		})
	case errors.Is(err, activationservice.ErrAlreadyPremium):
		response.Fail(w, r, http.StatusConflict, err.Error())
	default:
		log.Error("activation failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "internal error")
	}
}
