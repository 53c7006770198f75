package models

import "time"

// Client is a contact record owned by a user.
type Client struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	Company    string    `db:"company" json:"company"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	Address    string    `db:"address" json:"address"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	City       string    `db:"city" json:"city"`
	Country    string    `db:"country" json:"country"`
	Notes      string    `db:"notes" json:"notes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClientInput is the request body for creating or updating a client.
type ClientInput struct {
	Name       string `json:"name" validate:"required,max=200"`
	Company    string `json:"company" validate:"max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"max=50"`
	Address    string `json:"address" validate:"max=300"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	City       string `json:"city" validate:"max=100"`
	Country    string `json:"country" validate:"max=100"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// ToClient builds a Client owned by userID from the input.
func (in ClientInput) ToClient(userID string) Client {
	return Client{
		UserID:     userID,
		Name:       in.Name,
		Company:    in.Company,
		Email:      in.Email,
		Phone:      in.Phone,
		Address:    in.Address,
		PostalCode: in.PostalCode,
		City:       in.City,
		Country:    in.Country,
		Notes:      in.Notes,
	}
}
