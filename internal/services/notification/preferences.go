package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

// PreferencesRepository stores notification preferences.
type PreferencesRepository interface {
	GetNotificationPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	UpsertNotificationPreferences(ctx context.Context, p models.NotificationPreferences) (*models.NotificationPreferences, error)
}

// PreferencesService reads and writes the email switches of a user.
type PreferencesService struct {
	repo PreferencesRepository
}

func NewPreferencesService(repo PreferencesRepository) *PreferencesService {
	return &PreferencesService{repo: repo}
}

// Get returns the stored preferences or the all-enabled defaults.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	const op = "services.notification.GetPreferences"
	p, err := s.repo.GetNotificationPreferences(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		def := models.DefaultNotificationPreferences(userID)
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Update stores p for userID. The user id in p is ignored.
func (s *PreferencesService) Update(ctx context.Context, userID string, p models.NotificationPreferences) (*models.NotificationPreferences, error) {
	const op = "services.notification.UpdatePreferences"
	p.UserID = userID
	saved, err := s.repo.UpsertNotificationPreferences(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}
