package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/lib/jwt"
)

type validatorMock struct {
	mock.Mock
}

func (m *validatorMock) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*jwt.Claims)
	return claims, args.Error(1)
}

type adminMock struct {
	mock.Mock
}

func (m *adminMock) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		claims     *jwt.Claims
		err        error
		wantStatus int
		wantCalled bool
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "revoked token", authHeader: "Bearer revoked", err: errors.New("token revoked"),
			wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer good", claims: &jwt.Claims{UserID: "u1", Role: "user"},
			wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(validatorMock)
			if tt.claims != nil || tt.err != nil {
				auth.On("ValidateToken", mock.Anything, tt.authHeader[len("Bearer "):]).Return(tt.claims, tt.err).Once()
			}

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				uid, ok := middlewarectx.UserIDFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "u1", uid)
				claims, ok := middlewarectx.ClaimsFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "user", claims.Role)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			middlewarectx.JWTMiddleware(auth, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			auth.AssertExpectations(t)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		isAdmin    bool
		err        error
		wantStatus int
	}{
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
		{name: "regular user", userID: "u1", wantStatus: http.StatusForbidden},
		{name: "admin", userID: "a1", isAdmin: true, wantStatus: http.StatusNoContent},
		{name: "lookup failure", userID: "u1", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(adminMock)
			if tt.userID != "" {
				checker.On("IsAdmin", mock.Anything, tt.userID).Return(tt.isAdmin, tt.err).Once()
			}
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/codes", nil)
			if tt.userID != "" {
				req = req.WithContext(middlewarectx.WithClaims(req.Context(), &jwt.Claims{UserID: tt.userID}))
			}
			rec := httptest.NewRecorder()
			middlewarectx.AdminOnly(checker, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			checker.AssertExpectations(t)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middlewarectx.NewIPRateLimiter(0.001, 2)
	handler := middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:3333"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1111"), "buckets are per address")
}

func TestUUIDParam(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{name: "canonical uuid", id: "6f1c1c7e-8c1e-4d7c-9c54-1f0d3c1b2a10", wantStatus: http.StatusOK},
		{name: "plain text", id: "abc", wantStatus: http.StatusNotFound},
		{name: "integer", id: "42", wantStatus: http.StatusNotFound},
		{name: "urn form", id: "urn:uuid:6f1c1c7e-8c1e-4d7c-9c54-1f0d3c1b2a10", wantStatus: http.StatusNotFound},
		{name: "hex without hyphens", id: "6f1c1c7e8c1e4d7c9c541f0d3c1b2a10", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			r := chi.NewRouter()
			r.With(middlewarectx.UUIDParam("id")).Get("/quotes/{id}", func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/quotes/"+tt.id, nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
		})
	}
}
