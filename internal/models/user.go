// Package models holds the domain types shared by storage, services and handlers.
package models

import "time"

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account of the service.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	IsPremium    bool       `db:"is_premium" json:"is_premium"`
	PremiumSince *time.Time `db:"premium_since" json:"premium_since,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user may manage activation codes.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
