package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/solvix/solvix-devis/docs"
	"github.com/solvix/solvix-devis/internal/http/handlers/activation"
	"github.com/solvix/solvix-devis/internal/http/handlers/admin"
	"github.com/solvix/solvix-devis/internal/http/handlers/auth"
	"github.com/solvix/solvix-devis/internal/http/handlers/clients"
	"github.com/solvix/solvix-devis/internal/http/handlers/health"
	"github.com/solvix/solvix-devis/internal/http/handlers/notifications"
	"github.com/solvix/solvix-devis/internal/http/handlers/profile"
	"github.com/solvix/solvix-devis/internal/http/handlers/public"
	"github.com/solvix/solvix-devis/internal/http/handlers/quota"
	"github.com/solvix/solvix-devis/internal/http/handlers/quotes"
	"github.com/solvix/solvix-devis/internal/http/middlewarectx"
	"github.com/solvix/solvix-devis/internal/metrics"
)

// Services groups what the handlers depend on.
type Services struct {
	Auth interface {
		auth.Service
		middlewarectx.TokenValidator
	}
	Profiles profile.Service
	Clients  clients.Service
	Quotes   interface {
		quotes.Service
		public.Service
	}
	Quota      quota.Service
	Activation interface {
		activation.Service
		admin.Service
		middlewarectx.AdminChecker
	}
	Preferences notifications.Service
	Health      map[string]health.Pinger
}

// RegisterRoutes mounts every endpoint on r.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, limiter *middlewarectx.IPRateLimiter) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	)

	quotesHandler := quotes.New(logger, svc.Quotes)
	publicHandler := public.New(logger, svc.Quotes)
	authHandler := auth.New(logger, svc.Auth)
	clientsHandler := clients.New(logger, svc.Clients)
	profileHandler := profile.New(logger, svc.Profiles)
	prefsHandler := notifications.New(logger, svc.Preferences)
	adminHandler := admin.New(logger, svc.Activation)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/password-reset", authHandler.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", authHandler.ResetPassword)

		r.Route("/public/quotes/{token}", func(r chi.Router) {
			r.Get("/", publicHandler.Get)
			r.Get("/pdf", publicHandler.PDF)
			r.Post("/accept", publicHandler.Accept)
		})

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)

			r.Get("/profile", profileHandler.Get)
			r.Put("/profile", profileHandler.Put)

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", clientsHandler.List)
				r.Post("/", clientsHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middlewarectx.UUIDParam("id"))
					r.Get("/", clientsHandler.Get)
					r.Put("/", clientsHandler.Update)
					r.Delete("/", clientsHandler.Delete)
				})
			})

			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", quotesHandler.List)
				r.Post("/", quotesHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middlewarectx.UUIDParam("id"))
					r.Get("/", quotesHandler.Get)
					r.Put("/", quotesHandler.Update)
					r.Delete("/", quotesHandler.Delete)
					r.Patch("/status", quotesHandler.UpdateStatus)
					r.Get("/pdf", quotesHandler.PDF)
					r.Post("/share", quotesHandler.Share)
					r.Delete("/share", quotesHandler.Unshare)
				})
			})

			r.Get("/quota", quota.New(logger, svc.Quota).ServeHTTP)
			r.Post("/activation/activate", activation.New(logger, svc.Activation).ServeHTTP)
			r.Get("/notifications/preferences", prefsHandler.Get)
			r.Put("/notifications/preferences", prefsHandler.Put)

			r.Route("/admin/codes", func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(svc.Activation, logger))
				r.Post("/", adminHandler.Generate)
				r.Get("/", adminHandler.List)
				r.Get("/stats", adminHandler.Stats)
				r.Post("/{code}/sell", adminHandler.Sell)
				r.Post("/{code}/revoke", adminHandler.Revoke)
			})
		})
	})

	r.Get("/health", health.New(logger, svc.Health).ServeHTTP)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
