package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) CreateDevis(ctx context.Context, d *models.Devis, charge *repository.QuotaCharge) error {
	return m.Called(ctx, d, charge).Error(0)
}

func (m *repoMock) GetDevis(ctx context.Context, userID, id string) (*models.Devis, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Devis), args.Error(1)
}

func (m *repoMock) GetDevisByShareToken(ctx context.Context, token string) (*models.Devis, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Devis), args.Error(1)
}

func (m *repoMock) ListDevis(ctx context.Context, userID string, filter models.DevisFilter) ([]models.Devis, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Devis), args.Error(1)
}

func (m *repoMock) UpdateDevis(ctx context.Context, d *models.Devis) error {
	return m.Called(ctx, d).Error(0)
}

func (m *repoMock) UpdateDevisStatus(ctx context.Context, userID, id string, from, to models.DevisStatus) error {
	return m.Called(ctx, userID, id, from, to).Error(0)
}

func (m *repoMock) DeleteDevis(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *repoMock) SetShareToken(ctx context.Context, userID, id string, token *string) error {
	return m.Called(ctx, userID, id, token).Error(0)
}

func (m *repoMock) GetClient(ctx context.Context, userID, id string) (*models.Client, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *repoMock) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) Notify(ctx context.Context, event models.NotificationEvent) error {
	return m.Called(ctx, event).Error(0)
}

type pdfMock struct {
	mock.Mock
}

func (m *pdfMock) Render(d *models.Devis, company *models.Profile) ([]byte, error) {
	args := m.Called(d, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type fixedCharge struct {
	exhausted bool
}

func (c fixedCharge) CanCreateQuote(context.Context, string) bool {
	return !c.exhausted
}

func (fixedCharge) Charge(user *models.User) *repository.QuotaCharge {
	if user.IsPremium {
		return nil
	}
	return &repository.QuotaCharge{Period: "2026-10", Limit: 3}
}

type staticProfiles struct {
	profile *models.Profile
	err     error
}

func (p staticProfiles) Get(_ context.Context, userID string) (*models.Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := *p.profile
	out.UserID = userID
	return &out, nil
}

type fixture struct {
	svc      *DevisService
	repo     *repoMock
	notifier *notifierMock
	pdf      *pdfMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: new(repoMock), notifier: new(notifierMock), pdf: new(pdfMock)}
	profiles := staticProfiles{profile: &models.Profile{CompanyName: "Atelier", DefaultCurrency: "CHF"}}
	f.svc = NewDevisService(f.repo, fixedCharge{}, profiles, f.notifier, f.pdf,
		"https://app.solvix.test/", slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.svc.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	return f
}

func validInput() models.DevisInput {
	return models.DevisInput{
		IssueDate:  "2026-10-18",
		ValidUntil: "2026-11-17",
		Articles: []models.ArticleInput{
			{Designation: "Audit", Quantity: 1, UnitPrice: 100, VATRate: 20},
			{Designation: "Jours", Quantity: 3, UnitPrice: 33.34, VATRate: 5.5},
		},
	}
}

func TestDevisService_Create_FreeUserChargesQuota(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetUser", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)
	f.repo.On("CreateDevis", mock.Anything, mock.MatchedBy(func(d *models.Devis) bool {
		return d.UserID == "u1" && d.Status == models.DevisStatusDraft &&
			d.Template == models.TemplateClassic && d.Currency == "CHF" && len(d.Articles) == 2
	}), &repository.QuotaCharge{Period: "2026-10", Limit: 3}).
		Run(func(args mock.Arguments) {
			d := args.Get(1).(*models.Devis)
			d.ID = "d1"
			d.Number = "DEV-2026-0001"
		}).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e models.NotificationEvent) bool {
		return e.Type == models.NotificationNewQuote && e.UserID == "u1" &&
			e.Data["quote_id"] == "d1" && e.Data["quote_number"] == "DEV-2026-0001" &&
			e.Data["total_ttc"] == "225.52" && e.Data["currency"] == "CHF"
	})).Return(nil).Once()

	d, err := f.svc.Create(context.Background(), "u1", validInput())
	require.NoError(t, err)

	assert.Equal(t, "DEV-2026-0001", d.Number)
	assert.InDelta(t, 200.02, d.Subtotal, 0.001)
	assert.InDelta(t, 25.50, d.TotalVAT, 0.001)
	assert.InDelta(t, d.Subtotal+d.TotalVAT, d.TotalTTC, 0.001)
	f.repo.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestDevisService_Create_PremiumIsNotCharged(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Template = models.TemplateElegant
	in.Currency = "usd"

	f.repo.On("GetUser", mock.Anything, "u1").Return(&models.User{ID: "u1", IsPremium: true}, nil)
	f.repo.On("CreateDevis", mock.Anything, mock.MatchedBy(func(d *models.Devis) bool {
		return d.Template == models.TemplateElegant && d.Currency == "USD"
	}), (*repository.QuotaCharge)(nil)).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := f.svc.Create(context.Background(), "u1", in)
	require.NoError(t, err, "notification failures must not fail the creation")
	f.repo.AssertExpectations(t)
}

func TestDevisService_Create_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		user    *models.User
		input   func() models.DevisInput
		setup   func(r *repoMock)
		wantErr error
	}{
		{
			name: "premium template on free account",
			user: &models.User{ID: "u1"},
			input: func() models.DevisInput {
				in := validInput()
				in.Template = models.TemplateModern
				return in
			},
			wantErr: ErrPremiumRequired,
		},
		{
			name: "validity before issue date",
			user: &models.User{ID: "u1"},
			input: func() models.DevisInput {
				in := validInput()
				in.ValidUntil = "2026-10-01"
				return in
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "malformed date",
			user: &models.User{ID: "u1"},
			input: func() models.DevisInput {
				in := validInput()
				in.IssueDate = "18/10/2026"
				return in
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "no articles",
			user: &models.User{ID: "u1"},
			input: func() models.DevisInput {
				in := validInput()
				in.Articles = nil
				return in
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "client of another user",
			user: &models.User{ID: "u1"},
			input: func() models.DevisInput {
				in := validInput()
				in.ClientID = "c-other"
				return in
			},
			setup: func(r *repoMock) {
				r.On("GetClient", mock.Anything, "u1", "c-other").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrClientNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.On("GetUser", mock.Anything, tt.user.ID).Return(tt.user, nil)
			if tt.setup != nil {
				tt.setup(f.repo)
			}

			_, err := f.svc.Create(context.Background(), tt.user.ID, tt.input())
			assert.ErrorIs(t, err, tt.wantErr)
			f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
		})
	}
}

func TestDevisService_Create_QuotaExceeded(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetUser", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)
	f.repo.On("CreateDevis", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.Join(errors.New("storage.CreateDevis"), repository.ErrQuotaExhausted))

	_, err := f.svc.Create(context.Background(), "u1", validInput())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestDevisService_Create_SpentAllowanceStopsBeforeStorage(t *testing.T) {
	f := newFixture(t)
	f.svc.quota = fixedCharge{exhausted: true}
	f.repo.On("GetUser", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)

	_, err := f.svc.Create(context.Background(), "u1", validInput())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	f.repo.AssertNotCalled(t, "CreateDevis", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestDevisService_Create_PremiumSkipsAllowanceCheck(t *testing.T) {
	f := newFixture(t)
	f.svc.quota = fixedCharge{exhausted: true}
	f.repo.On("GetUser", mock.Anything, "u1").Return(&models.User{ID: "u1", IsPremium: true}, nil)
	f.repo.On("CreateDevis", mock.Anything, mock.Anything, (*repository.QuotaCharge)(nil)).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Create(context.Background(), "u1", validInput())
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestDevisService_Update(t *testing.T) {
	t.Run("accepted quote is locked", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetDevis", mock.Anything, "u1", "d1").
			Return(&models.Devis{ID: "d1", UserID: "u1", Status: models.DevisStatusAccepted}, nil)

		_, err := f.svc.Update(context.Background(), "u1", "d1", validInput())
		assert.ErrorIs(t, err, ErrDevisLocked)
		f.repo.AssertNotCalled(t, "UpdateDevis", mock.Anything, mock.Anything)
	})

	t.Run("keeps number and status", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetDevis", mock.Anything, "u1", "d1").
			Return(&models.Devis{ID: "d1", UserID: "u1", Number: "DEV-2026-0004", Status: models.DevisStatusSent}, nil)
		f.repo.On("GetUser", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)
		f.repo.On("UpdateDevis", mock.Anything, mock.MatchedBy(func(d *models.Devis) bool {
			return d.ID == "d1" && d.UserID == "u1" && d.Number == "DEV-2026-0004" &&
				d.Status == models.DevisStatusSent && len(d.Articles) == 2
		})).Return(nil).Once()

		d, err := f.svc.Update(context.Background(), "u1", "d1", validInput())
		require.NoError(t, err)
		assert.InDelta(t, 225.52, d.TotalTTC, 0.001)
		f.repo.AssertExpectations(t)
	})

	t.Run("unknown quote", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetDevis", mock.Anything, "u2", "d1").Return(nil, repository.ErrNotFound)

		_, err := f.svc.Update(context.Background(), "u2", "d1", validInput())
		assert.ErrorIs(t, err, ErrDevisNotFound)
	})
}

func TestDevisService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name      string
		from      models.DevisStatus
		to        models.DevisStatus
		repoErr   error
		wantErr   error
		wantEvent models.NotificationType
	}{
		{name: "draft to sent", from: models.DevisStatusDraft, to: models.DevisStatusSent,
			wantEvent: models.NotificationQuoteStatusChanged},
		{name: "sent to accepted", from: models.DevisStatusSent, to: models.DevisStatusAccepted,
			wantEvent: models.NotificationQuoteAccepted},
		{name: "expired to draft", from: models.DevisStatusExpired, to: models.DevisStatusDraft,
			wantEvent: models.NotificationQuoteStatusChanged},
		{name: "accepted is final", from: models.DevisStatusAccepted, to: models.DevisStatusDraft,
			wantErr: ErrInvalidStatusTransition},
		{name: "draft cannot expire", from: models.DevisStatusDraft, to: models.DevisStatusExpired,
			wantErr: ErrInvalidStatusTransition},
		{name: "concurrent change", from: models.DevisStatusDraft, to: models.DevisStatusSent,
			repoErr: repository.ErrConflict, wantErr: ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.On("GetDevis", mock.Anything, "u1", "d1").
				Return(&models.Devis{ID: "d1", UserID: "u1", Number: "DEV-2026-0001", Status: tt.from}, nil)
			f.repo.On("UpdateDevisStatus", mock.Anything, "u1", "d1", tt.from, tt.to).Return(tt.repoErr).Maybe()
			if tt.wantErr == nil {
				f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e models.NotificationEvent) bool {
					return e.Type == tt.wantEvent && e.UserID == "u1" &&
						e.Data["old_status"] == string(tt.from) && e.Data["new_status"] == string(tt.to)
				})).Return(nil).Once()
			}

			d, err := f.svc.UpdateStatus(context.Background(), "u1", "d1", tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, d.Status)
			f.notifier.AssertExpectations(t)
		})
	}
}

func TestDevisService_UpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateStatus(context.Background(), "u1", "d1", "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDevisService_List_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), "u1", models.DevisFilter{Status: "paid"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	f.repo.AssertNotCalled(t, "ListDevis", mock.Anything, mock.Anything, mock.Anything)
}

func TestDevisService_Share(t *testing.T) {
	t.Run("reuses existing token", func(t *testing.T) {
		f := newFixture(t)
		token := "tok-1"
		f.repo.On("GetDevis", mock.Anything, "u1", "d1").Return(&models.Devis{ID: "d1", ShareToken: &token}, nil)

		got, err := f.svc.Share(context.Background(), "u1", "d1")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", got)
		assert.Equal(t, "https://app.solvix.test/api/v1/public/quotes/tok-1", f.svc.ShareURL(got))
		f.repo.AssertNotCalled(t, "SetShareToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates token", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetDevis", mock.Anything, "u1", "d1").Return(&models.Devis{ID: "d1"}, nil)
		f.repo.On("SetShareToken", mock.Anything, "u1", "d1", mock.MatchedBy(func(tok *string) bool {
			return tok != nil && len(*tok) == 36
		})).Return(nil).Once()

		got, err := f.svc.Share(context.Background(), "u1", "d1")
		require.NoError(t, err)
		assert.Len(t, got, 36)
		f.repo.AssertExpectations(t)
	})

	t.Run("unshare clears token", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("SetShareToken", mock.Anything, "u1", "d1", (*string)(nil)).Return(nil).Once()

		require.NoError(t, f.svc.Unshare(context.Background(), "u1", "d1"))
		f.repo.AssertExpectations(t)
	})
}

func TestDevisService_AcceptShared(t *testing.T) {
	validUntil := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		status     models.DevisStatus
		validUntil time.Time
		wantErr    error
	}{
		{name: "sent quote on its last day", status: models.DevisStatusSent, validUntil: validUntil},
		{name: "draft quote", status: models.DevisStatusDraft, validUntil: validUntil.AddDate(0, 0, 10)},
		{name: "expired by date", status: models.DevisStatusSent, validUntil: validUntil.AddDate(0, 0, -1),
			wantErr: ErrDevisExpired},
		{name: "already rejected", status: models.DevisStatusRejected, validUntil: validUntil,
			wantErr: ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.On("GetDevisByShareToken", mock.Anything, "tok").Return(&models.Devis{
				ID: "d1", UserID: "owner", Status: tt.status, ValidUntil: tt.validUntil,
			}, nil)
			f.repo.On("UpdateDevisStatus", mock.Anything, "owner", "d1", tt.status, models.DevisStatusAccepted).
				Return(nil).Maybe()
			f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e models.NotificationEvent) bool {
				return e.Type == models.NotificationQuoteAccepted && e.UserID == "owner"
			})).Return(nil).Maybe()

			d, err := f.svc.AcceptShared(context.Background(), "tok")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.repo.AssertNotCalled(t, "UpdateDevisStatus",
					mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.DevisStatusAccepted, d.Status)
		})
	}
}

func TestDevisService_ExportPDF(t *testing.T) {
	f := newFixture(t)
	d := &models.Devis{ID: "d1", UserID: "u1", Number: "DEV-2026-0002"}
	f.repo.On("GetDevis", mock.Anything, "u1", "d1").Return(d, nil)
	f.pdf.On("Render", d, mock.MatchedBy(func(p *models.Profile) bool {
		return p.UserID == "u1" && p.CompanyName == "Atelier"
	})).Return([]byte("%PDF-1.3"), nil)

	out, name, err := f.svc.ExportPDF(context.Background(), "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "DEV-2026-0002.pdf", name)
	assert.Equal(t, []byte("%PDF-1.3"), out)
}

func TestDevisService_SharedPDF_RenderFailure(t *testing.T) {
	f := newFixture(t)
	d := &models.Devis{ID: "d1", UserID: "owner", Number: "DEV-2026-0002"}
	f.repo.On("GetDevisByShareToken", mock.Anything, "tok").Return(d, nil)
	f.pdf.On("Render", d, mock.Anything).Return(nil, errors.New("font missing"))

	_, _, err := f.svc.SharedPDF(context.Background(), "tok")
	assert.ErrorContains(t, err, "font missing")
}

func TestDevisService_Delete_NotFound(t *testing.T) {
	f := newFixture(t)
	f.repo.On("DeleteDevis", mock.Anything, "u2", "d1").Return(repository.ErrNotFound)

	err := f.svc.Delete(context.Background(), "u2", "d1")
	assert.ErrorIs(t, err, ErrDevisNotFound)
}
