// Package scheduler runs the periodic quote expiry job.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/solvix/solvix-devis/internal/config"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/rabbitmq"
	notificationservice "github.com/solvix/solvix-devis/internal/services/notification"
	schedulerservice "github.com/solvix/solvix-devis/internal/services/scheduler"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

const (
	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
)

// Job is the work run on every tick.
type Job interface {
	ExpireOverdueQuotes(ctx context.Context) (int, error)
}

// App represents the scheduler application.
type App struct {
	job    Job
	spec   string
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range dbReadyAttempts {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbReadyDelay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New connects the broker and the database.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if _, err := cron.ParseStandard(cfg.Scheduler.ExpireQuotesSpec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cfg.Scheduler.ExpireQuotesSpec, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, nil, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, nil, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(ctx, db); err != nil {
		closeResources(ch, conn, db, logger)
		return nil, err
	}

	notifier := notificationservice.NewNotifier(ch, logger)

	return &App{
		job:    schedulerservice.NewSchedulerService(db, notifier, logger),
		spec:   cfg.Scheduler.ExpireQuotesSpec,
		db:     db,
		conn:   conn,
		ch:     ch,
		logger: logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, db *repository.Storage, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close storage", sl.Err(err))
		}
	}
}

// newCron registers the expiry job on spec. Overlapping runs are skipped.
func newCron(ctx context.Context, spec string, job Job, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		n, err := job.ExpireOverdueQuotes(ctx)
		if err != nil {
			logger.Error("quote expiry run failed", sl.Err(err))
			return
		}
		logger.Info("quote expiry run finished", slog.Int("expired", n))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register job: %w", err)
	}
	return c, nil
}

// Run runs one expiry pass at startup, then on every tick until ctx is done.
func (a *App) Run(ctx context.Context) error {
	c, err := newCron(ctx, a.spec, a.job, a.logger)
	if err != nil {
		closeResources(a.ch, a.conn, a.db, a.logger)
		return err
	}

	if n, err := a.job.ExpireOverdueQuotes(ctx); err != nil {
		a.logger.Error("initial quote expiry run failed", sl.Err(err))
	} else {
		a.logger.Info("initial quote expiry run finished", slog.Int("expired", n))
	}

	c.Start()
	a.logger.Info("scheduler started", slog.String("spec", a.spec))

	<-ctx.Done()
	a.logger.Info("shutting down scheduler service")
	<-c.Stop().Done()

	closeResources(a.ch, a.conn, a.db, a.logger)
	return nil
}
