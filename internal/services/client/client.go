// Package services manages the clients of a user.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

// ErrClientNotFound is returned for unknown ids and ids owned by someone else.
var ErrClientNotFound = errors.New("client not found")

// Repository stores clients. Every method is scoped to an owner.
type Repository interface {
	CreateClient(ctx context.Context, c models.Client) (*models.Client, error)
	GetClient(ctx context.Context, userID, id string) (*models.Client, error)
	ListClients(ctx context.Context, userID string, limit, offset int) ([]models.Client, error)
	UpdateClient(ctx context.Context, c models.Client) (*models.Client, error)
	DeleteClient(ctx context.Context, userID, id string) error
}

type ClientService struct {
	repo Repository
	log  *slog.Logger
}

func NewClientService(repo Repository, log *slog.Logger) *ClientService {
	return &ClientService{repo: repo, log: log}
}

func notFound(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrClientNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *ClientService) Create(ctx context.Context, userID string, in models.ClientInput) (*models.Client, error) {
	const op = "services.client.Create"
	c, err := s.repo.CreateClient(ctx, in.ToClient(userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("client created", slog.String("client_id", c.ID), slog.String("user_id", userID))
	return c, nil
}

func (s *ClientService) Get(ctx context.Context, userID, id string) (*models.Client, error) {
	const op = "services.client.Get"
	c, err := s.repo.GetClient(ctx, userID, id)
	if err != nil {
		return nil, notFound(op, err)
	}
	return c, nil
}

func (s *ClientService) List(ctx context.Context, userID string, limit, offset int) ([]models.Client, error) {
	const op = "services.client.List"
	clients, err := s.repo.ListClients(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clients, nil
}

func (s *ClientService) Update(ctx context.Context, userID, id string, in models.ClientInput) (*models.Client, error) {
	const op = "services.client.Update"
	c := in.ToClient(userID)
	c.ID = id
	updated, err := s.repo.UpdateClient(ctx, c)
	if err != nil {
		return nil, notFound(op, err)
	}
	return updated, nil
}

func (s *ClientService) Delete(ctx context.Context, userID, id string) error {
	const op = "services.client.Delete"
	if err := s.repo.DeleteClient(ctx, userID, id); err != nil {
		return notFound(op, err)
	}
	s.log.Info("client deleted", slog.String("client_id", id), slog.String("user_id", userID))
	return nil
}
