// Package sender runs the consumer that turns notification events into emails.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/solvix/solvix-devis/internal/config"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/lib/smtp"
	"github.com/solvix/solvix-devis/internal/rabbitmq"
	notificationservice "github.com/solvix/solvix-devis/internal/services/notification"
	senderservice "github.com/solvix/solvix-devis/internal/services/sender"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

type App struct {
	db            *repository.Storage
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	prefs := notificationservice.NewPreferencesService(db)
	senderService := senderservice.NewSenderService(db, prefs, transport, logger)

	return &App{
		db:            db,
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// dropUndeliverable marks errors that a retry cannot fix as permanent so the
// delivery is discarded instead of requeued.
func dropUndeliverable(h rabbitmq.Handler) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) error {
		err := h(ctx, body)
		if errors.Is(err, senderservice.ErrUnknownType) || errors.Is(err, senderservice.ErrMalformedEvent) ||
			errors.Is(err, senderservice.ErrUnknownRecipient) {
			return fmt.Errorf("%w: %w", rabbitmq.ErrPermanent, err)
		}
		return err
	}
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.EmailQueue, a.logger, dropUndeliverable(a.senderService.Handle))
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", rabbitmq.EmailQueue), sl.Err(err))
		return err
	}
	a.logger.Info("consuming notifications", slog.String("queue", rabbitmq.EmailQueue))

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
