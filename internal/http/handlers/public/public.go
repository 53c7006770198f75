// Package public serves shared quotes to clients who hold the share link.
// No authentication is required; the token is the only credential.
package public

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/solvix/solvix-devis/internal/http/handlers/quotes"
	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/models"
)

type Service interface {
	GetShared(ctx context.Context, token string) (*models.Devis, *models.Profile, error)
	AcceptShared(ctx context.Context, token string) (*models.Devis, error)
	SharedPDF(ctx context.Context, token string) ([]byte, string, error)
}

// SharedQuote is a quote together with the company that issued it.
type SharedQuote struct {
	Quote   *models.Devis   `json:"quote"`
	Company *models.Profile `json:"company,omitempty"`
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(sl.Op(op), slog.String("request_id", middleware.GetReqID(r.Context())))
}

// Get godoc
// @Summary View a shared quote
// @Tags Public
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} response.Response{data=SharedQuote}
// @Failure 404 {object} response.ErrorResponse
// @Router /public/quotes/{token} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.public.Get"
	log := h.logger(r, op)

	d, company, err := h.service.GetShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		quotes.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, SharedQuote{Quote: d, Company: company})
}

// @Summary Download a shared quote as PDF
// @Tags Public
// @Produce application/pdf
// @Param token path string true "Share token"
// @Success 200 {file} binary
// @Router /public/quotes/{token}/pdf [get]
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.public.PDF"
	log := h.logger(r, op)

	doc, filename, err := h.service.SharedPDF(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		quotes.Fail(w, r, log, err)
		return
	}
	quotes.WritePDF(w, doc, filename)
}

// Accept godoc
// @Summary Accept a shared quote
// @Description Only draft or sent quotes whose validity date has not passed can be accepted.
// @Tags Public
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} response.Response{data=models.Devis}
// @Failure 409 {object} response.ErrorResponse
// @Failure 410 {object} response.ErrorResponse
// @Router /public/quotes/{token}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.public.Accept"
	log := h.logger(r, op)

	d, err := h.service.AcceptShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		quotes.Fail(w, r, log, err)
		return
	}
	log.Info("shared quote accepted", slog.String("quote_id", d.ID))
	response.OK(w, r, d)
}
