package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/solvix/solvix-devis/internal/http/response"
	"github.com/solvix/solvix-devis/internal/lib/sl"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log     *slog.Logger
	deps    map[string]Pinger
	timeout time.Duration
}

// New returns a readiness handler that pings every dependency in deps.
func New(log *slog.Logger, deps map[string]Pinger) *Handler {
	return &Handler{log: log, deps: deps, timeout: 2 * time.Second}
}

// ServeHTTP godoc
// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn("dependency unhealthy", sl.Op(op), slog.String("dependency", name), sl.Err(err))
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	if status != http.StatusOK {
		response.JSON(w, r, status, response.Response{
			Status: response.StatusError,
			Error:  "dependency unavailable",
			Data:   checks,
		})
		return
	}
	response.OK(w, r, map[string]any{"status": "ok", "checks": checks})
}
