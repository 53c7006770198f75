// Package services publishes notification events and manages the per-user
// email preferences.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/solvix/solvix-devis/internal/lib/rabbitmq"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/metrics"
	"github.com/solvix/solvix-devis/internal/models"
)

// Exchange and routing key of notification events.
const (
	Exchange   = "notifications"
	RoutingKey = "email"
)

// Notifier publishes events to the notifications exchange.
type Notifier struct {
	mu  sync.Mutex
	ch  rabbitmq.Channel
	log *slog.Logger
}

// NewNotifier creates a Notifier publishing on ch.
func NewNotifier(ch rabbitmq.Channel, log *slog.Logger) *Notifier {
	return &Notifier{ch: ch, log: log}
}

// Notify publishes event. Callers treat failures as non-fatal: the business
// operation that triggered the event has already been committed.
func (n *Notifier) Notify(ctx context.Context, event models.NotificationEvent) error {
	const op = "services.notification.Notify"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n.mu.Lock()
	err := rabbitmq.PublishMessage(n.ch, Exchange, RoutingKey, event)
	n.mu.Unlock()
	if err != nil {
		metrics.Notifications.WithLabelValues(string(event.Type), "failed").Inc()
		n.log.Error("failed to publish notification",
			sl.Op(op), slog.String("type", string(event.Type)), slog.String("user_id", event.UserID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.Notifications.WithLabelValues(string(event.Type), "published").Inc()
	n.log.Debug("notification published", slog.String("type", string(event.Type)), slog.String("user_id", event.UserID))
	return nil
}
