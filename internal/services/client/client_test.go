package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
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

func (m *repoMock) CreateClient(ctx context.Context, c models.Client) (*models.Client, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *repoMock) GetClient(ctx context.Context, userID, id string) (*models.Client, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *repoMock) ListClients(ctx context.Context, userID string, limit, offset int) ([]models.Client, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *repoMock) UpdateClient(ctx context.Context, c models.Client) (*models.Client, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *repoMock) DeleteClient(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func newService(repo *repoMock) *ClientService {
	return NewClientService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClientService_Create_AssignsOwner(t *testing.T) {
	repo := new(repoMock)
	repo.On("CreateClient", mock.Anything, mock.MatchedBy(func(c models.Client) bool {
		return c.UserID == "u1" && c.Name == "ACME"
	})).Return(&models.Client{ID: "c1", UserID: "u1", Name: "ACME"}, nil).Once()

	got, err := newService(repo).Create(context.Background(), "u1", models.ClientInput{Name: "ACME"})
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	repo.AssertExpectations(t)
}

func TestClientService_NotFoundMapping(t *testing.T) {
	tests := []struct {
		name string
		call func(s *ClientService, r *repoMock) error
	}{
		{
			name: "get",
			call: func(s *ClientService, r *repoMock) error {
				r.On("GetClient", mock.Anything, "u2", "c1").Return(nil, repository.ErrNotFound)
				_, err := s.Get(context.Background(), "u2", "c1")
				return err
			},
		},
		{
			name: "update",
			call: func(s *ClientService, r *repoMock) error {
				r.On("UpdateClient", mock.Anything, mock.MatchedBy(func(c models.Client) bool {
					return c.ID == "c1" && c.UserID == "u2"
				})).Return(nil, repository.ErrNotFound)
				_, err := s.Update(context.Background(), "u2", "c1", models.ClientInput{Name: "X"})
				return err
			},
		},
		{
			name: "delete",
			call: func(s *ClientService, r *repoMock) error {
				r.On("DeleteClient", mock.Anything, "u2", "c1").Return(repository.ErrNotFound)
				return s.Delete(context.Background(), "u2", "c1")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(repoMock)
			err := tt.call(newService(repo), repo)
			assert.ErrorIs(t, err, ErrClientNotFound)
		})
	}
}

func TestClientService_List_Error(t *testing.T) {
	repo := new(repoMock)
	repo.On("ListClients", mock.Anything, "u1", 20, 0).Return(nil, errors.New("down"))

	_, err := newService(repo).List(context.Background(), "u1", 20, 0)
	assert.ErrorContains(t, err, "down")
}
