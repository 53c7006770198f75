package repository

import (
	"context"
	"fmt"

	"github.com/solvix/solvix-devis/internal/models"
)

// GetNotificationPreferences returns the stored switches of userID.
func (s *Storage) GetNotificationPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	const op = "storage.GetNotificationPreferences"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	var p models.NotificationPreferences
	query := `SELECT user_id, email_new_quote, email_quote_accepted, email_quote_status_changed, updated_at
			  FROM user_notification_preferences
			  WHERE user_id = $1`
	if err := s.DB.GetContext(ctx, &p, query, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &p, nil
}

// UpsertNotificationPreferences stores p for p.UserID.
func (s *Storage) UpsertNotificationPreferences(ctx context.Context, p models.NotificationPreferences) (*models.NotificationPreferences, error) {
	const op = "storage.UpsertNotificationPreferences"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO user_notification_preferences
			      (user_id, email_new_quote, email_quote_accepted, email_quote_status_changed, updated_at)
			  VALUES ($1, $2, $3, $4, NOW())
			  ON CONFLICT (user_id) DO UPDATE SET
			      email_new_quote = EXCLUDED.email_new_quote,
			      email_quote_accepted = EXCLUDED.email_quote_accepted,
			      email_quote_status_changed = EXCLUDED.email_quote_status_changed,
			      updated_at = NOW()
			  RETURNING updated_at`
	if err := s.DB.QueryRowxContext(ctx, query,
		p.UserID, p.EmailNewQuote, p.EmailQuoteAccepted, p.EmailQuoteStatusChanged).Scan(&p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &p, nil
}
