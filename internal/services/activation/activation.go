// Package services implements premium activation codes: batch generation,
// sale, redemption with brute-force lockout, and revocation.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/metrics"
	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

// MaxBatchSize bounds a single Generate call.
const MaxBatchSize = 500

const insertAttempts = 3

var (
	ErrInvalidCodeFormat  = errors.New("invalid activation code format")
	ErrActivationBlocked  = errors.New("too many failed activation attempts")
	ErrCodeNotActivatable = errors.New("activation code is invalid or already used")
	ErrAlreadyPremium     = errors.New("account is already premium")
	ErrInvalidCount       = errors.New("count must be between 1 and 500")
	ErrCodeNotFound       = errors.New("activation code not found")
	ErrCodeNotSellable    = errors.New("only available codes can be sold")
	ErrCodeAlreadyRevoked = errors.New("activation code already revoked")
)

// BlockedError carries the end of an activation block.
type BlockedError struct {
	Until time.Time
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrActivationBlocked, e.Until.UTC().Format(time.RFC3339))
}

func (e *BlockedError) Unwrap() error { return ErrActivationBlocked }

// RejectedError is returned when a well-formed code cannot be redeemed.
type RejectedError struct {
	AttemptsLeft int
	BlockedUntil *time.Time
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s (%d attempts left)", ErrCodeNotActivatable, e.AttemptsLeft)
}

func (e *RejectedError) Unwrap() error { return ErrCodeNotActivatable }

// Repository is the storage used by ActivationService.
type Repository interface {
	InsertActivationCodes(ctx context.Context, codes []models.ActivationCode) error
	MarkCodeSold(ctx context.Context, code, customerEmail, customerName string) (*models.ActivationCode, error)
	ActivateCode(ctx context.Context, code, userID, fingerprint string) (*models.ActivationCode, error)
	RevokeCode(ctx context.Context, code, reason string) (*models.ActivationCode, error)
	ActivationCodeStats(ctx context.Context) (*models.ActivationCodeStats, error)
	ListActivationCodes(ctx context.Context, filter models.CodeFilter) ([]models.ActivationCode, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// ActivationService manages the premium code lifecycle.
type ActivationService struct {
	repo    Repository
	lockout *Lockout
	log     *slog.Logger
}

// NewActivationService creates an ActivationService.
func NewActivationService(repo Repository, lockout *Lockout, log *slog.Logger) *ActivationService {
	return &ActivationService{
		repo:    repo,
		lockout: lockout,
		log:     log,
	}
}

// IsAdmin reports whether userID holds the admin role.
func (s *ActivationService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	const op = "services.activation.IsAdmin"
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return user.IsAdmin(), nil
}

// Generate creates count AVAILABLE codes sharing one batch id.
func (s *ActivationService) Generate(ctx context.Context, adminID string, count int, notes string) ([]models.ActivationCode, error) {
	const op = "services.activation.Generate"
	if count < 1 || count > MaxBatchSize {
		return nil, ErrInvalidCount
	}

	batchID := uuid.NewString()
	var createdBy *string
	if adminID != "" {
		createdBy = &adminID
	}

	for attempt := 1; ; attempt++ {
		codes, err := newBatch(count, batchID, notes, createdBy)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		err = s.repo.InsertActivationCodes(ctx, codes)
		if err == nil {
			s.log.Info("activation codes generated",
				slog.String("batch_id", batchID), slog.Int("count", count), slog.String("admin_id", adminID))
			return codes, nil
		}
		if !errors.Is(err, repository.ErrAlreadyExists) || attempt == insertAttempts {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Warn("activation code collision, regenerating batch", slog.Int("attempt", attempt))
	}
}

func newBatch(count int, batchID, notes string, createdBy *string) ([]models.ActivationCode, error) {
	seen := make(map[string]struct{}, count)
	codes := make([]models.ActivationCode, 0, count)
	for len(codes) < count {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, models.ActivationCode{
			Code:      code,
			Status:    models.CodeStatusAvailable,
			BatchID:   batchID,
			Notes:     notes,
			CreatedBy: createdBy,
		})
	}
	return codes, nil
}

// MarkAsSold records the customer of an AVAILABLE code.
func (s *ActivationService) MarkAsSold(ctx context.Context, rawCode, customerEmail, customerName string) (*models.ActivationCode, error) {
	const op = "services.activation.MarkAsSold"
	code := NormalizeCode(rawCode)
	if !ValidCodeFormat(code) {
		return nil, ErrInvalidCodeFormat
	}

	c, err := s.repo.MarkCodeSold(ctx, code, customerEmail, customerName)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrCodeNotFound
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrCodeNotSellable
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Revoke revokes a code in any state but REVOKED. The holder of a USED code
// loses premium.
func (s *ActivationService) Revoke(ctx context.Context, rawCode, reason string) (*models.ActivationCode, error) {
	const op = "services.activation.Revoke"
	code := NormalizeCode(rawCode)
	if !ValidCodeFormat(code) {
		return nil, ErrInvalidCodeFormat
	}

	c, err := s.repo.RevokeCode(ctx, code, reason)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrCodeNotFound
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrCodeAlreadyRevoked
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("activation code revoked", slog.String("code", code), slog.String("reason", reason))
	return c, nil
}

// Stats counts codes per status.
func (s *ActivationService) Stats(ctx context.Context) (*models.ActivationCodeStats, error) {
	const op = "services.activation.Stats"
	stats, err := s.repo.ActivationCodeStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

// List returns a page of codes.
func (s *ActivationService) List(ctx context.Context, filter models.CodeFilter) ([]models.ActivationCode, error) {
	const op = "services.activation.List"
	codes, err := s.repo.ListActivationCodes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return codes, nil
}

// Activate redeems rawCode for userID. Input is normalized first; a malformed
// code is rejected without counting as an attempt. While a user is blocked
// every attempt fails, valid code or not.
func (s *ActivationService) Activate(ctx context.Context, userID, rawCode, fingerprint string) (*models.ActivationResult, error) {
	const op = "services.activation.Activate"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	code := NormalizeCode(rawCode)
	if !ValidCodeFormat(code) {
		metrics.ActivationAttempts.WithLabelValues("invalid_format").Inc()
		return nil, ErrInvalidCodeFormat
	}

	until, err := s.lockout.Check(ctx, userID)
	if err != nil {
		metrics.ActivationAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if until != nil {
		metrics.ActivationAttempts.WithLabelValues("blocked").Inc()
		log.Warn("activation attempt while blocked", slog.Time("blocked_until", *until))
		return nil, &BlockedError{Until: *until}
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		metrics.ActivationAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsPremium {
		return nil, ErrAlreadyPremium
	}

	activated, err := s.repo.ActivateCode(ctx, code, userID, fingerprint)
	if errors.Is(err, repository.ErrAlreadyPremium) {
		return nil, ErrAlreadyPremium
	}
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
		metrics.ActivationAttempts.WithLabelValues("rejected").Inc()
		left, blockedUntil, lockErr := s.lockout.RecordFailure(ctx, userID)
		if lockErr != nil {
			log.Error("failed to record activation failure", sl.Err(lockErr))
			return nil, fmt.Errorf("%s: %w", op, lockErr)
		}
		log.Info("activation rejected", slog.Int("attempts_left", left))
		return nil, &RejectedError{AttemptsLeft: left, BlockedUntil: blockedUntil}
	}
	if err != nil {
		metrics.ActivationAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = s.lockout.Reset(ctx, userID); err != nil {
		log.Warn("failed to clear activation attempts", sl.Err(err))
	}
	metrics.ActivationAttempts.WithLabelValues("success").Inc()
	log.Info("premium activated", slog.String("code_id", activated.ID))

	activatedAt := time.Now().UTC()
	if activated.UsedAt != nil {
		activatedAt = *activated.UsedAt
	}
	return &models.ActivationResult{
		Code:        activated.Code,
		ActivatedAt: activatedAt,
		IsPremium:   true,
	}, nil
}
