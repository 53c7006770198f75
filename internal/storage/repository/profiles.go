package repository

import (
	"context"
	"fmt"

	"github.com/solvix/solvix-devis/internal/models"
)

// GetProfile returns the profile of userID.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var p models.Profile
	query := `SELECT user_id, company_name, address, postal_code, city, country, phone, email,
			      siret, vat_number, vat_enabled, default_vat_rate, logo_url, signature_url,
			      default_currency, updated_at
			  FROM profiles
			  WHERE user_id = $1`
	if err := s.DB.GetContext(ctx, &p, query, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &p, nil
}

// UpsertProfile creates or replaces the profile row of p.UserID.
func (s *Storage) UpsertProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	const op = "storage.UpsertProfile"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO profiles (user_id, company_name, address, postal_code, city, country, phone,
			      email, siret, vat_number, vat_enabled, default_vat_rate, logo_url, signature_url,
			      default_currency, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
			  ON CONFLICT (user_id) DO UPDATE SET
			      company_name = EXCLUDED.company_name,
			      address = EXCLUDED.address,
			      postal_code = EXCLUDED.postal_code,
			      city = EXCLUDED.city,
			      country = EXCLUDED.country,
			      phone = EXCLUDED.phone,
			      email = EXCLUDED.email,
			      siret = EXCLUDED.siret,
			      vat_number = EXCLUDED.vat_number,
			      vat_enabled = EXCLUDED.vat_enabled,
			      default_vat_rate = EXCLUDED.default_vat_rate,
			      logo_url = EXCLUDED.logo_url,
			      signature_url = EXCLUDED.signature_url,
			      default_currency = EXCLUDED.default_currency,
			      updated_at = NOW()
			  RETURNING updated_at`
	if err := s.DB.QueryRowxContext(ctx, query,
		p.UserID, p.CompanyName, p.Address, p.PostalCode, p.City, p.Country, p.Phone,
		p.Email, p.Siret, p.VATNumber, p.VATEnabled, p.DefaultVATRate, p.LogoURL, p.SignatureURL,
		p.DefaultCurrency).Scan(&p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &p, nil
}
