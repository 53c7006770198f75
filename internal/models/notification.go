package models

import "time"

// NotificationType names an email template.
type NotificationType string

const (
	NotificationNewQuote           NotificationType = "new_quote"
	NotificationQuoteAccepted      NotificationType = "quote_accepted"
	NotificationQuoteStatusChanged NotificationType = "quote_status_changed"
	NotificationPasswordReset      NotificationType = "password_reset"
)

// NotificationEvent is the message published for the email sender.
type NotificationEvent struct {
	Type   NotificationType  `json:"type"`
	UserID string            `json:"userId"`
	Data   map[string]string `json:"data"`
}

// NotificationPreferences are the per-user email switches.
type NotificationPreferences struct {
	UserID                  string    `db:"user_id" json:"user_id"`
	EmailNewQuote           bool      `db:"email_new_quote" json:"email_new_quote"`
	EmailQuoteAccepted      bool      `db:"email_quote_accepted" json:"email_quote_accepted"`
	EmailQuoteStatusChanged bool      `db:"email_quote_status_changed" json:"email_quote_status_changed"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultNotificationPreferences enables every email.
func DefaultNotificationPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:                  userID,
		EmailNewQuote:           true,
		EmailQuoteAccepted:      true,
		EmailQuoteStatusChanged: true,
	}
}

// Allows reports whether the preferences let an email of type t through.
// Account emails such as password resets are always sent.
func (p NotificationPreferences) Allows(t NotificationType) bool {
	switch t {
	case NotificationNewQuote:
		return p.EmailNewQuote
	case NotificationQuoteAccepted:
		return p.EmailQuoteAccepted
	case NotificationQuoteStatusChanged:
		return p.EmailQuoteStatusChanged
	case NotificationPasswordReset:
		return true
	}
	return false
}

// ExpiredDevis describes a quote moved to expired by the scheduler.
type ExpiredDevis struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`
	Number string `db:"number"`
}
