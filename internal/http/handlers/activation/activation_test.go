package activation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/lib/fingerprint"
	"github.com/solvix/solvix-devis/internal/lib/jwt"
	"github.com/solvix/solvix-devis/internal/models"
	activationservice "github.com/solvix/solvix-devis/internal/services/activation"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Activate(ctx context.Context, userID, rawCode, fp string) (*models.ActivationResult, error) {
	args := m.Called(ctx, userID, rawCode, fp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivationResult), args.Error(1)
}

func newRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activation/activate", strings.NewReader(body))
	req.Header.Set(fingerprint.Header, "device-42")
	return req.WithContext(middlewarectx.WithClaims(req.Context(), &jwt.Claims{UserID: "u1"}))
}

func TestHandler_ServeHTTP(t *testing.T) {
	blockedUntil := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		result     *models.ActivationResult
		err        error
		wantStatus int
		wantBody   string
		wantCall   bool
	}{
		{
			name:       "activated",
			body:       `{"code":"solvix-ab12cd34"}`,
			result:     &models.ActivationResult{Code: "SOLVIX-AB12CD34", IsPremium: true},
			wantStatus: http.StatusOK,
			wantBody:   `"is_premium":true`,
			wantCall:   true,
		},
		{
			name:       "bad format",
			body:       `{"code":"hello"}`,
			err:        activationservice.ErrInvalidCodeFormat,
			wantStatus: http.StatusUnprocessableEntity,
			wantCall:   true,
		},
		{
			name:       "rejected",
			body:       `{"code":"SOLVIX-00000000"}`,
			err:        &activationservice.RejectedError{AttemptsLeft: 3},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"attempts_left":3`,
			wantCall:   true,
		},
		{
			name:       "last attempt blocks",
			body:       `{"code":"SOLVIX-00000000"}`,
			err:        &activationservice.RejectedError{AttemptsLeft: 0, BlockedUntil: &blockedUntil},
			wantStatus: http.StatusTooManyRequests,
			wantBody:   `"blocked_until":"2026-10-19T09:00:00Z"`,
			wantCall:   true,
		},
		{
			name:       "blocked",
			body:       `{"code":"SOLVIX-AB12CD34"}`,
			err:        &activationservice.BlockedError{Until: blockedUntil},
			wantStatus: http.StatusTooManyRequests,
			wantBody:   `"blocked_until":"2026-10-19T09:00:00Z"`,
			wantCall:   true,
		},
		{
			name:       "already premium",
			body:       `{"code":"SOLVIX-AB12CD34"}`,
			err:        activationservice.ErrAlreadyPremium,
			wantStatus: http.StatusConflict,
			wantCall:   true,
		},
		{
			name:       "storage failure",
			body:       `{"code":"SOLVIX-AB12CD34"}`,
			err:        errors.New("redis down"),
			wantStatus: http.StatusInternalServerError,
			wantCall:   true,
		},
		{name: "missing code", body: `{}`, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.wantCall {
				if tt.result != nil {
					svc.On("Activate", mock.Anything, "u1", "solvix-ab12cd34", "device-42").Return(tt.result, nil).Once()
				} else {
					svc.On("Activate", mock.Anything, "u1", mock.Anything, "device-42").Return(nil, tt.err).Once()
				}
			}

			rec := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, newRequest(tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}
