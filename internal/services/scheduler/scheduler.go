// Package services holds the periodic jobs run by the scheduler binary.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/metrics"
	"github.com/solvix/solvix-devis/internal/models"
)

type DevisRepository interface {
	ExpireOverdueDevis(ctx context.Context, day time.Time) ([]models.ExpiredDevis, error)
}

type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent) error
}

type SchedulerService struct {
	repo     DevisRepository
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
}

func NewSchedulerService(repo DevisRepository, notifier Notifier, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		log:      log,
	}
}

// ExpireOverdueQuotes moves every sent quote whose validity date is before
// today to expired and publishes one quote_status_changed event per quote.
// It returns the number of expired quotes.
func (s *SchedulerService) ExpireOverdueQuotes(ctx context.Context) (int, error) {
	const op = "services.scheduler.ExpireOverdueQuotes"
	log := s.log.With(sl.Op(op))

	today := s.now().UTC().Truncate(24 * time.Hour)
	expired, err := s.repo.ExpireOverdueDevis(ctx, today)
	if err != nil {
		log.Error("failed to expire quotes", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(expired) == 0 {
		log.Info("no overdue quotes found")
		return 0, nil
	}

	metrics.QuotesExpired.Add(float64(len(expired)))
	log.Info("quotes expired", slog.Int("count", len(expired)))

	for _, d := range expired {
		event := models.NotificationEvent{
			Type:   models.NotificationQuoteStatusChanged,
			UserID: d.UserID,
			Data: map[string]string{
				"quote_id":     d.ID,
				"quote_number": d.Number,
				"old_status":   string(models.DevisStatusSent),
				"new_status":   string(models.DevisStatusExpired),
			},
		}
		if err := s.notifier.Notify(ctx, event); err != nil {
			log.Error("failed to publish expiry notification", slog.String("devis_id", d.ID), sl.Err(err))
		}
	}
	return len(expired), nil
}
