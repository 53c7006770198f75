package quotes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/lib/jwt"
	"github.com/solvix/solvix-devis/internal/models"
	devisservice "github.com/solvix/solvix-devis/internal/services/devis"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Create(ctx context.Context, userID string, in models.DevisInput) (*models.Devis, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Devis), args.Error(1)
}

func (m *ServiceMock) Get(ctx context.Context, userID, id string) (*models.Devis, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Devis), args.Error(1)
}

func (m *ServiceMock) List(ctx context.Context, userID string, filter models.DevisFilter) ([]models.Devis, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Devis), args.Error(1)
}

func (m *ServiceMock) Update(ctx context.Context, userID, id string, in models.DevisInput) (*models.Devis, error) {
	args := m.Called(ctx, userID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Devis), args.Error(1)
}

func (m *ServiceMock) UpdateStatus(ctx context.Context, userID, id string, status models.DevisStatus) (*models.Devis, error) {
	args := m.Called(ctx, userID, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Devis), args.Error(1)
}

func (m *ServiceMock) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *ServiceMock) Share(ctx context.Context, userID, id string) (string, error) {
	args := m.Called(ctx, userID, id)
	return args.String(0), args.Error(1)
}

func (m *ServiceMock) Unshare(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *ServiceMock) ShareURL(token string) string {
	return "https://devis.example.com/api/v1/public/quotes/" + token
}

func (m *ServiceMock) ExportPDF(ctx context.Context, userID, id string) ([]byte, string, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func newRequest(method, target, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middlewarectx.WithClaims(ctx, &jwt.Claims{UserID: "u1"})
	return req.WithContext(ctx)
}

func newHandler(svc *ServiceMock) *Handler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
}

const createBody = `{
	"issue_date": "2026-10-18",
	"valid_until": "2026-11-17",
	"articles": [{"designation": "Pose de carrelage", "quantity": 12, "unit_price": 45, "vat_rate": 10}]
}`

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{devisservice.ErrDevisNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", devisservice.ErrClientNotFound), http.StatusNotFound},
		{devisservice.ErrQuotaExceeded, http.StatusForbidden},
		{devisservice.ErrPremiumRequired, http.StatusForbidden},
		{devisservice.ErrInvalidStatusTransition, http.StatusConflict},
		{devisservice.ErrDevisLocked, http.StatusConflict},
		{devisservice.ErrDevisExpired, http.StatusGone},
		{devisservice.ErrInvalidInput, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCall   bool
	}{
		{name: "created", body: createBody, wantStatus: http.StatusCreated, wantCall: true},
		{name: "quota exceeded", body: createBody, serviceErr: devisservice.ErrQuotaExceeded,
			wantStatus: http.StatusForbidden, wantCall: true},
		{name: "no articles", body: `{"issue_date":"2026-10-18","valid_until":"2026-11-17","articles":[]}`,
			wantStatus: http.StatusUnprocessableEntity},
		{name: "zero quantity",
			body:       `{"issue_date":"2026-10-18","valid_until":"2026-11-17","articles":[{"designation":"x","quantity":0}]}`,
			wantStatus: http.StatusUnprocessableEntity},
		{name: "malformed json", body: `{"issue_date":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.wantCall {
				if tt.serviceErr != nil {
					svc.On("Create", mock.Anything, "u1", mock.AnythingOfType("models.DevisInput")).
						Return(nil, tt.serviceErr).Once()
				} else {
					svc.On("Create", mock.Anything, "u1", mock.AnythingOfType("models.DevisInput")).
						Return(&models.Devis{ID: "d1", Number: "DEV-2026-0001"}, nil).Once()
				}
			}

			rec := httptest.NewRecorder()
			newHandler(svc).Create(rec, newRequest(http.MethodPost, "/api/v1/quotes", tt.body, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_List_PassesFilter(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("List", mock.Anything, "u1", models.DevisFilter{Status: models.DevisStatusSent, Limit: 10, Offset: 0}).
		Return([]models.Devis{{ID: "d1", Status: models.DevisStatusSent}}, nil).Once()

	rec := httptest.NewRecorder()
	newHandler(svc).List(rec, newRequest(http.MethodGet, "/api/v1/quotes?status=sent&limit=10", "", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"sent"`)
	svc.AssertExpectations(t)
}

func TestHandler_UpdateStatus(t *testing.T) {
	params := map[string]string{"id": "d1"}

	svc := new(ServiceMock)
	svc.On("UpdateStatus", mock.Anything, "u1", "d1", models.DevisStatusAccepted).
		Return(nil, devisservice.ErrInvalidStatusTransition).Once()

	rec := httptest.NewRecorder()
	newHandler(svc).UpdateStatus(rec, newRequest(http.MethodPatch, "/api/v1/quotes/d1/status", `{"status":"accepted"}`, params))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	newHandler(svc).UpdateStatus(rec, newRequest(http.MethodPatch, "/api/v1/quotes/d1/status", `{"status":"archived"}`, params))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	svc.AssertExpectations(t)
}

func TestHandler_PDF(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ExportPDF", mock.Anything, "u1", "d1").Return([]byte("%PDF-1.3"), "DEV-2026-0001.pdf", nil).Once()

	rec := httptest.NewRecorder()
	newHandler(svc).PDF(rec, newRequest(http.MethodGet, "/api/v1/quotes/d1/pdf", "", map[string]string{"id": "d1"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="DEV-2026-0001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestHandler_Share(t *testing.T) {
	params := map[string]string{"id": "d1"}

	svc := new(ServiceMock)
	svc.On("Share", mock.Anything, "u1", "d1").Return("tok-1", nil).Once()
	svc.On("Unshare", mock.Anything, "u1", "d1").Return(nil).Once()

	rec := httptest.NewRecorder()
	newHandler(svc).Share(rec, newRequest(http.MethodPost, "/api/v1/quotes/d1/share", "", params))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"url":"https://devis.example.com/api/v1/public/quotes/tok-1"`)

	rec = httptest.NewRecorder()
	newHandler(svc).Unshare(rec, newRequest(http.MethodDelete, "/api/v1/quotes/d1/share", "", params))
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.AssertExpectations(t)
}

func TestHandler_RequiresUser(t *testing.T) {
	svc := new(ServiceMock)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)

	rec := httptest.NewRecorder()
	newHandler(svc).List(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}
