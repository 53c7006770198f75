package middlewarectx

import (
	"context"
	"net/http"

	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/jwt"
)

// Key is the type of request context keys set by this package.
type Key string

const (
	// UserID is the authenticated user's id.
	UserID Key = "user_id"
	// Role is the authenticated user's role.
	Role Key = "role"
	// Claims is the parsed access token, used by logout.
	Claims Key = "claims"
)

// WithClaims returns a copy of ctx carrying the identity of claims.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	ctx = context.WithValue(ctx, UserID, claims.UserID)
	ctx = context.WithValue(ctx, Role, claims.Role)
	return context.WithValue(ctx, Claims, claims)
}

// UserIDFrom returns the authenticated user id stored in ctx.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserID).(string)
	return id, ok && id != ""
}

// ClaimsFrom returns the access token claims stored in ctx.
func ClaimsFrom(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(Claims).(*jwt.Claims)
	return c, ok && c != nil
}

// RequireUser returns the authenticated user id, or writes 401 and returns
// false when the request carries none.
func RequireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := UserIDFrom(r.Context())
	if !ok {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}
