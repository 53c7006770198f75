package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *repoMock) UpsertProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func TestProfileService_Get(t *testing.T) {
	t.Run("defaults for a new user", func(t *testing.T) {
		repo := new(repoMock)
		repo.On("GetProfile", mock.Anything, "u1").Return(nil, repository.ErrNotFound)

		got, err := NewProfileService(repo).Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "EUR", got.DefaultCurrency)
		assert.True(t, got.VATEnabled)
		assert.InDelta(t, 20, got.DefaultVATRate, 0.001)
	})

	t.Run("storage error", func(t *testing.T) {
		repo := new(repoMock)
		repo.On("GetProfile", mock.Anything, "u1").Return(nil, errors.New("down"))

		_, err := NewProfileService(repo).Get(context.Background(), "u1")
		assert.Error(t, err)
	})
}

func TestProfileService_Upsert_ForcesOwner(t *testing.T) {
	repo := new(repoMock)
	repo.On("UpsertProfile", mock.Anything, mock.MatchedBy(func(p models.Profile) bool {
		return p.UserID == "owner" && p.DefaultCurrency == "EUR" && p.CompanyName == "Atelier"
	})).Return(&models.Profile{UserID: "owner", CompanyName: "Atelier"}, nil).Once()

	got, err := NewProfileService(repo).Upsert(context.Background(), "owner",
		models.Profile{UserID: "someone-else", CompanyName: "Atelier"})
	require.NoError(t, err)
	assert.Equal(t, "owner", got.UserID)
	repo.AssertExpectations(t)
}
