// Package api wires the HTTP API: storage, cache, broker, services and routes.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/solvix/solvix-devis/internal/cache"
	"github.com/solvix/solvix-devis/internal/config"
	"github.com/solvix/solvix-devis/internal/http/handlers/health"
	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/lib/jwt"
	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/migrations"
	"github.com/solvix/solvix-devis/internal/pdf"
	"github.com/solvix/solvix-devis/internal/rabbitmq"
	activationservice "github.com/solvix/solvix-devis/internal/services/activation"
	authservice "github.com/solvix/solvix-devis/internal/services/auth"
	clientservice "github.com/solvix/solvix-devis/internal/services/client"
	devisservice "github.com/solvix/solvix-devis/internal/services/devis"
	notificationservice "github.com/solvix/solvix-devis/internal/services/notification"
	profileservice "github.com/solvix/solvix-devis/internal/services/profile"
	quotaservice "github.com/solvix/solvix-devis/internal/services/quota"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notifier := notificationservice.NewNotifier(ch, logger)
	profiles := profileservice.NewProfileService(db)
	quota := quotaservice.NewQuotaService(db, db, cfg.Quota.FreeMonthlyQuotes, logger)
	lockout := activationservice.NewLockout(cacheRedis.Db, cfg.Activation.MaxFailedAttempts, cfg.Activation.LockoutWindow)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL)

	svc := Services{
		Auth:        authservice.NewAuthService(db, jwtMaker, cacheRedis, notifier, cfg.PublicBaseURL, logger),
		Profiles:    profiles,
		Clients:     clientservice.NewClientService(db, logger),
		Quotes:      devisservice.NewDevisService(db, quota, profiles, notifier, pdf.NewRenderer(), cfg.PublicBaseURL, logger),
		Quota:       quota,
		Activation:  activationservice.NewActivationService(db, lockout, logger),
		Preferences: notificationservice.NewPreferencesService(db),
		Health: map[string]health.Pinger{
			"postgres": db,
			"redis":    cacheRedis,
		},
	}

	router := chi.NewRouter()
	limiter := middlewarectx.NewIPRateLimiter(cfg.HTTPServer.RateLimit, cfg.HTTPServer.RateBurst)
	RegisterRoutes(router, logger, svc, limiter)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
