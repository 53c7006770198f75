// Package services implements the quote lifecycle: creation under the monthly
// allowance, line item edits, status transitions, public share links and PDF export.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/metrics"
	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

const (
	dateLayout      = "2006-01-02"
	defaultCurrency = "EUR"
	sharePath       = "/api/v1/public/quotes/"
)

var (
	ErrDevisNotFound           = errors.New("quote not found")
	ErrClientNotFound          = errors.New("client not found")
	ErrQuotaExceeded           = errors.New("monthly quote limit reached")
	ErrPremiumRequired         = errors.New("template requires a premium account")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidInput            = errors.New("invalid quote input")
	ErrDevisLocked             = errors.New("accepted quote cannot be modified")
	ErrDevisExpired            = errors.New("quote validity date has passed")
)

// Repository stores quotes. Every user scoped method filters on userID.
type Repository interface {
	CreateDevis(ctx context.Context, d *models.Devis, charge *repository.QuotaCharge) error
	GetDevis(ctx context.Context, userID, id string) (*models.Devis, error)
	GetDevisByShareToken(ctx context.Context, token string) (*models.Devis, error)
	ListDevis(ctx context.Context, userID string, filter models.DevisFilter) ([]models.Devis, error)
	UpdateDevis(ctx context.Context, d *models.Devis) error
	UpdateDevisStatus(ctx context.Context, userID, id string, from, to models.DevisStatus) error
	DeleteDevis(ctx context.Context, userID, id string) error
	SetShareToken(ctx context.Context, userID, id string, token *string) error
	GetClient(ctx context.Context, userID, id string) (*models.Client, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// QuotaCharger decides which allowance a quote creation consumes.
type QuotaCharger interface {
	CanCreateQuote(ctx context.Context, userID string) bool
	Charge(user *models.User) *repository.QuotaCharge
}

type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent) error
}

type ProfileProvider interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
}

type PDFRenderer interface {
	Render(d *models.Devis, company *models.Profile) ([]byte, error)
}

type DevisService struct {
	repo          Repository
	quota         QuotaCharger
	profiles      ProfileProvider
	notifier      Notifier
	pdf           PDFRenderer
	publicBaseURL string
	now           func() time.Time
	log           *slog.Logger
}

func NewDevisService(repo Repository, quota QuotaCharger, profiles ProfileProvider, notifier Notifier,
	pdf PDFRenderer, publicBaseURL string, log *slog.Logger) *DevisService {
	return &DevisService{
		repo:          repo,
		quota:         quota,
		profiles:      profiles,
		notifier:      notifier,
		pdf:           pdf,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
		log:           log,
	}
}

func mapNotFound(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDevisNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func parseDates(in models.DevisInput) (time.Time, time.Time, error) {
	issue, err := time.Parse(dateLayout, in.IssueDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: issue_date must use YYYY-MM-DD", ErrInvalidInput)
	}
	validUntil, err := time.Parse(dateLayout, in.ValidUntil)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: valid_until must use YYYY-MM-DD", ErrInvalidInput)
	}
	if validUntil.Before(issue) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: valid_until is before issue_date", ErrInvalidInput)
	}
	return issue, validUntil, nil
}

// build validates in against user's entitlements and returns the quote fields
// it describes, totals included.
func (s *DevisService) build(ctx context.Context, user *models.User, in models.DevisInput) (*models.Devis, error) {
	const op = "services.devis.build"

	if len(in.Articles) == 0 {
		return nil, fmt.Errorf("%w: at least one article is required", ErrInvalidInput)
	}
	issue, validUntil, err := parseDates(in)
	if err != nil {
		return nil, err
	}

	template := in.Template
	if template == "" {
		template = models.TemplateClassic
	}
	if models.IsPremiumTemplate(template) && !user.IsPremium {
		return nil, ErrPremiumRequired
	}

	d := &models.Devis{
		UserID:     user.ID,
		IssueDate:  issue,
		ValidUntil: validUntil,
		Currency:   strings.ToUpper(in.Currency),
		Template:   template,
		Notes:      in.Notes,
		Articles:   models.ArticlesFromInput(in.Articles),
	}

	if in.ClientID != "" {
		client, err := s.repo.GetClient(ctx, user.ID, in.ClientID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.ClientID = &client.ID
		d.Client = client
	}

	if d.Currency == "" {
		d.Currency = defaultCurrency
		if p, err := s.profiles.Get(ctx, user.ID); err == nil && p.DefaultCurrency != "" {
			d.Currency = p.DefaultCurrency
		}
	}

	totals := models.ComputeTotals(d.Articles)
	d.Subtotal = totals.Subtotal
	d.TotalVAT = totals.TotalVAT
	d.TotalTTC = totals.TotalTTC
	return d, nil
}

func (s *DevisService) loadUser(ctx context.Context, op, userID string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Create stores a new draft quote of userID. Free users with a spent allowance
// are turned away up front; the others consume one unit of the monthly
// allowance in the same transaction as the insert, which has the final say.
func (s *DevisService) Create(ctx context.Context, userID string, in models.DevisInput) (*models.Devis, error) {
	const op = "services.devis.Create"

	user, err := s.loadUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsPremium && !s.quota.CanCreateQuote(ctx, userID) {
		return nil, ErrQuotaExceeded
	}
	d, err := s.build(ctx, user, in)
	if err != nil {
		return nil, err
	}
	d.Status = models.DevisStatusDraft

	if err := s.repo.CreateDevis(ctx, d, s.quota.Charge(user)); err != nil {
		if errors.Is(err, repository.ErrQuotaExhausted) {
			return nil, ErrQuotaExceeded
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.QuotesCreated.Inc()
	s.log.Info("quote created",
		slog.String("devis_id", d.ID), slog.String("number", d.Number), slog.String("user_id", userID))

	clientName := ""
	if d.Client != nil {
		clientName = d.Client.Name
	}
	s.notify(ctx, models.NotificationNewQuote, d, map[string]string{
		"client_name": clientName,
		"total_ttc":   strconv.FormatFloat(d.TotalTTC, 'f', 2, 64),
		"currency":    d.Currency,
	})
	return d, nil
}

func (s *DevisService) Get(ctx context.Context, userID, id string) (*models.Devis, error) {
	const op = "services.devis.Get"
	d, err := s.repo.GetDevis(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(op, err)
	}
	return d, nil
}

func (s *DevisService) List(ctx context.Context, userID string, filter models.DevisFilter) ([]models.Devis, error) {
	const op = "services.devis.List"
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	list, err := s.repo.ListDevis(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Update replaces the header fields and every line of a quote. Accepted
// quotes are frozen.
func (s *DevisService) Update(ctx context.Context, userID, id string, in models.DevisInput) (*models.Devis, error) {
	const op = "services.devis.Update"

	current, err := s.repo.GetDevis(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(op, err)
	}
	if current.Status == models.DevisStatusAccepted {
		return nil, ErrDevisLocked
	}

	user, err := s.loadUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	d, err := s.build(ctx, user, in)
	if err != nil {
		return nil, err
	}
	d.ID = current.ID
	d.Number = current.Number
	d.Status = current.Status
	d.ShareToken = current.ShareToken
	d.CreatedAt = current.CreatedAt

	if err := s.repo.UpdateDevis(ctx, d); err != nil {
		return nil, mapNotFound(op, err)
	}
	s.log.Info("quote updated", slog.String("devis_id", id), slog.String("user_id", userID))
	return d, nil
}

// UpdateStatus moves a quote to status when the transition is allowed. The
// write is conditional on the status read, so a concurrent change yields
// ErrInvalidStatusTransition.
func (s *DevisService) UpdateStatus(ctx context.Context, userID, id string, status models.DevisStatus) (*models.Devis, error) {
	const op = "services.devis.UpdateStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	d, err := s.repo.GetDevis(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(op, err)
	}
	if err := s.transition(ctx, op, d, status); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DevisService) transition(ctx context.Context, op string, d *models.Devis, to models.DevisStatus) error {
	from := d.Status
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, from, to)
	}
	if err := s.repo.UpdateDevisStatus(ctx, d.UserID, d.ID, from, to); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%w: quote changed concurrently", ErrInvalidStatusTransition)
		}
		return mapNotFound(op, err)
	}
	d.Status = to

	s.log.Info("quote status changed",
		slog.String("devis_id", d.ID), slog.String("from", string(from)), slog.String("to", string(to)))

	eventType := models.NotificationQuoteStatusChanged
	if to == models.DevisStatusAccepted {
		eventType = models.NotificationQuoteAccepted
	}
	s.notify(ctx, eventType, d, map[string]string{
		"old_status": string(from),
		"new_status": string(to),
	})
	return nil
}

func (s *DevisService) Delete(ctx context.Context, userID, id string) error {
	const op = "services.devis.Delete"
	if err := s.repo.DeleteDevis(ctx, userID, id); err != nil {
		return mapNotFound(op, err)
	}
	s.log.Info("quote deleted", slog.String("devis_id", id), slog.String("user_id", userID))
	return nil
}

// ShareURL is the public address of a shared quote.
func (s *DevisService) ShareURL(token string) string {
	return s.publicBaseURL + sharePath + token
}

// Share returns the share token of a quote, creating one on first call.
func (s *DevisService) Share(ctx context.Context, userID, id string) (string, error) {
	const op = "services.devis.Share"

	d, err := s.repo.GetDevis(ctx, userID, id)
	if err != nil {
		return "", mapNotFound(op, err)
	}
	if d.ShareToken != nil && *d.ShareToken != "" {
		return *d.ShareToken, nil
	}

	token := uuid.NewString()
	if err := s.repo.SetShareToken(ctx, userID, id, &token); err != nil {
		return "", mapNotFound(op, err)
	}
	s.log.Info("quote shared", slog.String("devis_id", id), slog.String("user_id", userID))
	return token, nil
}

// Unshare revokes the share link of a quote.
func (s *DevisService) Unshare(ctx context.Context, userID, id string) error {
	const op = "services.devis.Unshare"
	if err := s.repo.SetShareToken(ctx, userID, id, nil); err != nil {
		return mapNotFound(op, err)
	}
	return nil
}

// GetShared returns a shared quote with the profile of the company issuing it.
func (s *DevisService) GetShared(ctx context.Context, token string) (*models.Devis, *models.Profile, error) {
	const op = "services.devis.GetShared"

	d, err := s.repo.GetDevisByShareToken(ctx, token)
	if err != nil {
		return nil, nil, mapNotFound(op, err)
	}
	p, err := s.profiles.Get(ctx, d.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, p, nil
}

// AcceptShared records the acceptance of a shared quote by its recipient.
func (s *DevisService) AcceptShared(ctx context.Context, token string) (*models.Devis, error) {
	const op = "services.devis.AcceptShared"

	d, err := s.repo.GetDevisByShareToken(ctx, token)
	if err != nil {
		return nil, mapNotFound(op, err)
	}
	if d.Status != models.DevisStatusDraft && d.Status != models.DevisStatusSent {
		return nil, fmt.Errorf("%w: quote is %s", ErrInvalidStatusTransition, d.Status)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if d.ValidUntil.Before(today) {
		return nil, ErrDevisExpired
	}
	if err := s.transition(ctx, op, d, models.DevisStatusAccepted); err != nil {
		return nil, err
	}
	return d, nil
}

// ExportPDF renders a quote of userID and returns the document with its file name.
func (s *DevisService) ExportPDF(ctx context.Context, userID, id string) ([]byte, string, error) {
	const op = "services.devis.ExportPDF"

	d, err := s.repo.GetDevis(ctx, userID, id)
	if err != nil {
		return nil, "", mapNotFound(op, err)
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return s.render(op, d, p)
}

// SharedPDF renders a shared quote.
func (s *DevisService) SharedPDF(ctx context.Context, token string) ([]byte, string, error) {
	const op = "services.devis.SharedPDF"

	d, p, err := s.GetShared(ctx, token)
	if err != nil {
		return nil, "", err
	}
	return s.render(op, d, p)
}

func (s *DevisService) render(op string, d *models.Devis, p *models.Profile) ([]byte, string, error) {
	out, err := s.pdf.Render(d, p)
	if err != nil {
		s.log.Error("failed to render pdf", sl.Op(op), slog.String("devis_id", d.ID), sl.Err(err))
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return out, d.Number + ".pdf", nil
}

func (s *DevisService) notify(ctx context.Context, t models.NotificationType, d *models.Devis, data map[string]string) {
	data["quote_id"] = d.ID
	data["quote_number"] = d.Number
	event := models.NotificationEvent{Type: t, UserID: d.UserID, Data: data}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.Warn("notification not published",
			slog.String("type", string(t)), slog.String("devis_id", d.ID), sl.Err(err))
	}
}
