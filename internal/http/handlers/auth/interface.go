package auth

import (
	"context"

	"github.com/solvix/solvix-devis/internal/lib/jwt"
	"github.com/solvix/solvix-devis/internal/models"
)

// Service is the account API used by the auth handlers.
type Service interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	Me(ctx context.Context, userID string) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}
