// Package quota reports the monthly quote allowance of the current user.
package quota

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/models"
)

type Service interface {
	GetQuotaInfo(ctx context.Context, userID string) models.QuotaInfo
}

type Handler struct {
	log     *slog.Logger
	service Service
}

// quotaResponse adds the creation verdict to the allowance.
type quotaResponse struct {
	models.QuotaInfo
	CanCreate bool `json:"can_create"`
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Monthly quote allowance
// @Description limit and remaining are -1 for premium accounts. can_create tells whether one more quote fits.
// @Tags Quota
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=quotaResponse}
// @Router /quota [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewarectx.RequireUser(w, r)
	if !ok {
		return
	}
	info := h.service.GetQuotaInfo(r.Context(), userID)
	response.OK(w, r, quotaResponse{QuotaInfo: info, CanCreate: info.CanCreate()})
}
