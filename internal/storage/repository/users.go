package repository

import (
	"context"
	"fmt"

	"github.com/solvix/solvix-devis/internal/models"
)

const userColumns = `id, email, password_hash, role, is_premium, premium_since, created_at`

// CreateUser stores a new user and returns its id.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	if err := checkContext(ctx, op); err != nil {
		return "", err
	}

	var id string
	query := `INSERT INTO users (email, password_hash, role)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	if err := s.DB.QueryRowxContext(ctx, query, user.Email, user.PasswordHash, user.Role).Scan(&id); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	return id, nil
}

// GetUserByEmail returns the user registered with email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var u models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := s.DB.GetContext(ctx, &u, query, email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &u, nil
}

// GetUser returns the user with id.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var u models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := s.DB.GetContext(ctx, &u, query, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &u, nil
}

// UpdatePassword replaces the password hash of the user.
func (s *Storage) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const op = "storage.UpdatePassword"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = checkAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
