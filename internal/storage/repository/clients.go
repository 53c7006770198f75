package repository

import (
	"context"
	"fmt"

	"github.com/solvix/solvix-devis/internal/models"
)

const clientColumns = `id, user_id, name, company, email, phone, address, postal_code, city, country,
	notes, created_at, updated_at`

// CreateClient stores c under c.UserID.
func (s *Storage) CreateClient(ctx context.Context, c models.Client) (*models.Client, error) {
	const op = "storage.CreateClient"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO clients (user_id, name, company, email, phone, address, postal_code, city,
			      country, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id, created_at, updated_at`
	if err := s.DB.QueryRowxContext(ctx, query,
		c.UserID, c.Name, c.Company, c.Email, c.Phone, c.Address, c.PostalCode, c.City,
		c.Country, c.Notes).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &c, nil
}

// GetClient returns the client id owned by userID.
func (s *Storage) GetClient(ctx context.Context, userID, id string) (*models.Client, error) {
	const op = "storage.GetClient"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var c models.Client
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND user_id = $2`
	if err := s.DB.GetContext(ctx, &c, query, id, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &c, nil
}

// ListClients returns a page of the clients of userID ordered by name.
func (s *Storage) ListClients(ctx context.Context, userID string, limit, offset int) ([]models.Client, error) {
	const op = "storage.ListClients"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	clients := []models.Client{}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE user_id = $1
			  ORDER BY name, created_at
			  LIMIT $2 OFFSET $3`
	if err := s.DB.SelectContext(ctx, &clients, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clients, nil
}

// UpdateClient overwrites the editable fields of c, matched on id and owner.
func (s *Storage) UpdateClient(ctx context.Context, c models.Client) (*models.Client, error) {
	const op = "storage.UpdateClient"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE clients
			  SET name = $1, company = $2, email = $3, phone = $4, address = $5, postal_code = $6,
			      city = $7, country = $8, notes = $9, updated_at = NOW()
			  WHERE id = $10 AND user_id = $11
			  RETURNING created_at, updated_at`
	if err := s.DB.QueryRowxContext(ctx, query,
		c.Name, c.Company, c.Email, c.Phone, c.Address, c.PostalCode, c.City, c.Country, c.Notes,
		c.ID, c.UserID).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &c, nil
}

// DeleteClient removes the client id owned by userID. Quotes keep their rows
// with the client reference cleared.
func (s *Storage) DeleteClient(ctx context.Context, userID, id string) error {
	const op = "storage.DeleteClient"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM clients WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err = checkAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
