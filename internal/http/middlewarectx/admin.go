package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/sl"
)

// AdminChecker reports whether a user holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AdminOnly lets only administrators through. It must run after JWTMiddleware.
// The role is read from storage so a demoted admin loses access before the
// token expires.
func AdminOnly(checker AdminChecker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AdminOnly"
			log := log.With(sl.Op(op), slog.String("request_id", middleware.GetReqID(r.Context())))

			userID, ok := UserIDFrom(r.Context())
			if !ok {
				response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), userID)
			if err != nil {
				log.Error("failed to check admin role", sl.Err(err))
				response.Fail(w, r, http.StatusInternalServerError, "internal error")
				return
			}
			if !isAdmin {
				log.Warn("admin route denied", slog.String("user_id", userID))
				response.Fail(w, r, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
