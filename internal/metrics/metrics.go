// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solvix"

var (
	// RequestCounter counts HTTP requests by route pattern and status.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds.
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	QuotesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quotes_created_total",
		Help:      "Quotes created",
	})

	QuotesExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quotes_expired_total",
		Help:      "Quotes moved to expired by the scheduler",
	})

	// ActivationAttempts counts premium code activations by outcome
	// (success, invalid_format, blocked, rejected, error).
	ActivationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activation_attempts_total",
			Help:      "Premium code activation attempts",
		},
		[]string{"outcome"},
	)

	// Notifications counts notification events by type and outcome
	// (published, sent, skipped, failed).
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification events",
		},
		[]string{"type", "outcome"},
	)

	// Registry holds every collector above plus the Go and process collectors.
	Registry = prometheus.NewRegistry()
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RequestCounter,
		RequestDurationHistogram,
		QuotesCreated,
		QuotesExpired,
		ActivationAttempts,
		Notifications,
	)
}

// Middleware records request count and duration labelled with the chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestCounter.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		RequestDurationHistogram.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
