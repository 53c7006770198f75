// Package auth implements the account endpoints: registration, login,
// logout, the current user and password reset.
package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	authservice "github.com/solvix/solvix-devis/internal/services/auth"
)

// Credentials is the body of register and login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(sl.Op(op), slog.String("request_id", middleware.GetReqID(r.Context())))
}

// Register godoc
// @Summary Create an account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Credentials true "Email and password"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Register"
	log := h.logger(r, op)

	var req Credentials
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid register request", sl.Err(err))
		return
	}

	id, err := h.service.Register(r.Context(), req.Email, req.Password)
	if errors.Is(err, authservice.ErrEmailTaken) {
		response.Fail(w, r, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to register user")
		return
	}

	log.Info("user registered", slog.String("user_id", id))
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{
		"id":    id,
		"email": req.Email,
	}))
}

// Login godoc
// @Summary Exchange credentials for an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Credentials true "Email and password"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"
	log := h.logger(r, op)

	var req Credentials
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid login request", sl.Err(err))
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, authservice.ErrInvalidCredentials) {
		response.Fail(w, r, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		log.Error("login failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to log in")
		return
	}

	response.OK(w, r, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Logout revokes the token of the current request.
// @Summary Revoke the current access token
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Logout"
	log := h.logger(r, op)

	claims, ok := middlewarectx.ClaimsFrom(r.Context())
	if !ok {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		log.Error("logout failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to log out")
		return
	}
	response.OK(w, r, map[string]any{"message": "logged out"})
}

// Me godoc
// @Summary Current user
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.User}
// @Router /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Me"
	log := h.logger(r, op)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		log.Error("failed to load current user", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to load user")
		return
	}
	response.OK(w, r, user)
}

// RequestPasswordReset always answers 200, whether or not the address is registered.
// @Summary Send a password reset link
// @Tags Auth
// @Accept json
// @Param request body PasswordResetRequest true "Account email"
// @Success 200 {object} response.Response
// @Router /auth/password-reset [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.RequestPasswordReset"
	log := h.logger(r, op)

	var req PasswordResetRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid password reset request", sl.Err(err))
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		log.Error("password reset request failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to request password reset")
		return
	}
	response.OK(w, r, map[string]any{"message": "if the account exists, a reset link has been sent"})
}

// @Summary Set a new password with a reset token
// @Tags Auth
// @Accept json
// @Param request body PasswordResetConfirm true "Token and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /auth/password-reset/confirm [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.ResetPassword"
	log := h.logger(r, op)

	var req PasswordResetConfirm
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Warn("invalid password reset confirmation", sl.Err(err))
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.Password)
	if errors.Is(err, authservice.ErrInvalidResetToken) {
		response.Fail(w, r, http.StatusBadRequest, "invalid or expired reset token")
		return
	}
	if err != nil {
		log.Error("password reset failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to reset password")
		return
	}
	response.OK(w, r, map[string]any{"message": "password updated"})
}
