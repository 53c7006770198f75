package models

import "time"

// Profile is the company identity printed on a user's quotes. One per user.
type Profile struct {
	UserID          string    `db:"user_id" json:"user_id"`
	CompanyName     string    `db:"company_name" json:"company_name" validate:"required,max=200"`
	Address         string    `db:"address" json:"address" validate:"max=300"`
	PostalCode      string    `db:"postal_code" json:"postal_code" validate:"max=20"`
	City            string    `db:"city" json:"city" validate:"max=100"`
	Country         string    `db:"country" json:"country" validate:"max=100"`
	Phone           string    `db:"phone" json:"phone" validate:"max=50"`
	Email           string    `db:"email" json:"email" validate:"omitempty,email"`
	Siret           string    `db:"siret" json:"siret" validate:"omitempty,numeric,len=14"`
	VATNumber       string    `db:"vat_number" json:"vat_number" validate:"max=30"`
	VATEnabled      bool      `db:"vat_enabled" json:"vat_enabled"`
	DefaultVATRate  float64   `db:"default_vat_rate" json:"default_vat_rate" validate:"gte=0,lte=100"`
	LogoURL         string    `db:"logo_url" json:"logo_url" validate:"omitempty,url"`
	SignatureURL    string    `db:"signature_url" json:"signature_url" validate:"omitempty,url"`
	DefaultCurrency string    `db:"default_currency" json:"default_currency" validate:"omitempty,len=3,alpha"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultProfile is returned for users who never saved their profile.
func DefaultProfile(userID string) Profile {
	return Profile{
		UserID:          userID,
		VATEnabled:      true,
		DefaultVATRate:  20,
		DefaultCurrency: "EUR",
	}
}
