// Package http assembles the API router from the per-module handlers and the
// shared middleware chain.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	availabilityhandler "plantpantry/internal/availability/handler"
	chainshandler "plantpantry/internal/chains/handler"
	directoryhandler "plantpantry/internal/directory/handler"
	locationhandler "plantpantry/internal/location/handler"
	"plantpantry/internal/platform/metrics"
	"plantpantry/internal/platform/middleware"
	"plantpantry/internal/transport/http/shared"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config carries the handlers and cross-cutting collaborators the router
// needs. Admin write routes are disabled when AdminToken is empty.
type Config struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Stores       *directoryhandler.Handler
	Chains       *chainshandler.Handler
	Location     *locationhandler.Handler
	Availability *availabilityhandler.Handler

	AdminToken     string
	RequestTimeout time.Duration

	// Checks are probed by /healthz; a nil checker is skipped.
	Checks map[string]HealthChecker
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.SessionKey)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Get("/healthz", healthHandler(cfg.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.ContentTypeJSON)

		cfg.Stores.Register(r)
		cfg.Location.Register(r)
		cfg.Availability.Register(r)
		cfg.Chains.Register(r)

		// Chain writes are curation actions; reads stay open.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.AdminToken))
			cfg.Chains.RegisterAdmin(r)
		})
	})

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		result := make(map[string]string, len(checks)+1)
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(r.Context()); err != nil {
				result[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		if status == http.StatusOK {
			result["status"] = "ok"
		} else {
			result["status"] = "degraded"
		}
		shared.WriteJSON(w, status, result)
	}
}
