// Package services computes the monthly quote allowance of free users.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

const periodLayout = "2006-01"

// Repository reads monthly usage counters.
type Repository interface {
	GetQuotaUsage(ctx context.Context, userID, period string) (int, error)
}

// UserReader loads the premium flag of a user.
type UserReader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// QuotaService enforces the free tier allowance. Premium users are unlimited.
type QuotaService struct {
	repo      Repository
	users     UserReader
	freeLimit int
	now       func() time.Time
	log       *slog.Logger
}

// NewQuotaService creates a QuotaService granting freeLimit quotes per month.
func NewQuotaService(repo Repository, users UserReader, freeLimit int, log *slog.Logger) *QuotaService {
	return &QuotaService{
		repo:      repo,
		users:     users,
		freeLimit: freeLimit,
		now:       time.Now,
		log:       log,
	}
}

// Period returns the usage period of t, e.g. "2026-10".
func Period(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

func (s *QuotaService) fallback(period string) models.QuotaInfo {
	return models.QuotaInfo{
		Used:      0,
		Limit:     s.freeLimit,
		Remaining: s.freeLimit,
		Period:    period,
		Fallback:  true,
	}
}

// GetQuotaInfo returns the allowance of userID for the current month. When the
// store cannot be read it logs a warning and returns the free tier defaults.
func (s *QuotaService) GetQuotaInfo(ctx context.Context, userID string) models.QuotaInfo {
	const op = "services.quota.GetQuotaInfo"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))
	period := Period(s.now())

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		log.Warn("failed to load user, using default quota", sl.Err(err))
		return s.fallback(period)
	}

	if user.IsPremium {
		info := models.QuotaInfo{
			Limit:     models.UnlimitedQuota,
			Remaining: models.UnlimitedQuota,
			IsPremium: true,
			Period:    period,
		}
		if info.Used, err = s.repo.GetQuotaUsage(ctx, userID, period); err != nil {
			log.Warn("failed to load quota usage of premium user", sl.Err(err))
			info.Used = 0
		}
		return info
	}

	used, err := s.repo.GetQuotaUsage(ctx, userID, period)
	if err != nil {
		log.Warn("failed to load quota usage, using default quota", sl.Err(err))
		return s.fallback(period)
	}
	return models.QuotaInfo{
		Used:      used,
		Limit:     s.freeLimit,
		Remaining: max(s.freeLimit-used, 0),
		Period:    period,
	}
}

// CanCreateQuote reports whether userID may create one more quote this month.
func (s *QuotaService) CanCreateQuote(ctx context.Context, userID string) bool {
	return s.GetQuotaInfo(ctx, userID).CanCreate()
}

// Charge returns the conditional increment that quote creation applies in its
// own transaction, or nil for premium users. This is the only place usage grows.
func (s *QuotaService) Charge(user *models.User) *repository.QuotaCharge {
	if user.IsPremium {
		return nil
	}
	return &repository.QuotaCharge{Period: Period(s.now()), Limit: s.freeLimit}
}
