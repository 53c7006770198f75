// Package services holds account registration, login, logout and password reset.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solvix/solvix-devis/internal/lib/jwt"
	"github.com/solvix/solvix-devis/internal/lib/password"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

const (
	denylistKeyPrefix = "solvix_jwt_denylist:"
	resetKeyPrefix    = "solvix_password_reset:"
	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = time.Hour
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// UserRepository describes the user storage.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// TokenStore keeps the logout denylist and reset tokens.
type TokenStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Take(ctx context.Context, key string, result any) (bool, error)
}

// Notifier publishes notification events.
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent) error
}

// AuthService handles accounts and access tokens.
type AuthService struct {
	users         UserRepository
	jwtMaker      jwt.Maker
	store         TokenStore
	notifier      Notifier
	publicBaseURL string
	log           *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, store TokenStore, notifier Notifier,
	publicBaseURL string, log *slog.Logger) *AuthService {
	return &AuthService{
		users:         users,
		jwtMaker:      jwtMaker,
		store:         store,
		notifier:      notifier,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a non-premium account with the "user" role.
func (s *AuthService) Register(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "services.auth.Register"
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.users.CreateUser(ctx, models.User{
		Email:        normalizeEmail(email),
		PasswordHash: hashed,
		Role:         models.RoleUser,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		return "", ErrEmailTaken
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// Login checks the password and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	const op = "services.auth.Login"
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

// ValidateToken parses token and rejects it when it was logged out.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	const op = "services.auth.ValidateToken"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	revoked, err := s.store.Exists(ctx, denylistKeyPrefix+claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout denies the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	const op = "services.auth.Logout"
	if claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.store.Set(ctx, denylistKeyPrefix+claims.ID, true, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Me returns the current account.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	const op = "services.auth.Me"
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// RequestPasswordReset stores a single-use reset token and emails its link.
// An unknown address is not reported to the caller.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "services.auth.RequestPasswordReset"
	log := s.log.With(sl.Op(op))

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	token := uuid.NewString()
	if err = s.store.Set(ctx, resetKeyPrefix+token, user.ID, ResetTokenTTL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resetURL := s.publicBaseURL + "/reset-password?token=" + url.QueryEscape(token)
	if err = s.notifier.Notify(ctx, models.NotificationEvent{
		Type:   models.NotificationPasswordReset,
		UserID: user.ID,
		Data:   map[string]string{"reset_url": resetURL},
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword consumes token and replaces the password of its user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "services.auth.ResetPassword"
	var userID string
	found, err := s.store.Take(ctx, resetKeyPrefix+token, &userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return ErrInvalidResetToken
	}

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.users.UpdatePassword(ctx, userID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
