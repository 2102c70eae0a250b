// Package routes wires the HTTP surface onto the chi router.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/quotagate/gateway/app"
	"github.com/quotagate/gateway/handlers"
	"github.com/quotagate/gateway/internal/observability"
	"github.com/quotagate/gateway/middleware"
	"github.com/quotagate/gateway/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	h := handlers.New(deps)

	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.PropagateRequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Recoverer(deps.Lifecycle, deps.Config.IsProduction(), deps.Logger))
	r.Use(chimiddleware.Timeout(deps.Config.Server.WriteTimeout))
	r.Use(observability.InstrumentHandler)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Orchestration probes
	r.Get("/health", h.Health.HandleHealth)
	r.Get("/health/live", h.Health.HandleLiveness)
	r.Get("/health/ready", h.Health.HandleReadiness)
	r.Get("/health/detailed", h.Health.HandleDetailed)

	// Prometheus metrics
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		// Metered API
		r.Group(func(r chi.Router) {
			r.Use(middleware.InFlightTracker(deps.Lifecycle))
			r.Post("/generate", h.Generate.HandleGenerate)
		})

		// Self-service account surface, read-only and reachable while draining
		r.Route("/account", func(r chi.Router) {
			r.Use(h.Account.RequireAccount)
			r.Get("/", h.Account.HandleGetAccount)
			r.Get("/history", h.Account.HandleHistory)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "resource not found", "not_found")
	})

	// 405 handler
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", "method_not_allowed")
	})

	return r
}
