// Package services manages the company profile printed on quotes.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

// Repository stores profiles.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) (*models.Profile, error)
}

type ProfileService struct {
	repo Repository
}

func NewProfileService(repo Repository) *ProfileService {
	return &ProfileService{repo: repo}
}

// Get returns the saved profile of userID or the defaults when none exists.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "services.profile.Get"
	p, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		def := models.DefaultProfile(userID)
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Upsert saves p as the profile of userID.
func (s *ProfileService) Upsert(ctx context.Context, userID string, p models.Profile) (*models.Profile, error) {
	const op = "services.profile.Upsert"
	p.UserID = userID
	if p.DefaultCurrency == "" {
		p.DefaultCurrency = "EUR"
	}
	saved, err := s.repo.UpsertProfile(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}
