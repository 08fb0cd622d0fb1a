package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router
func NewRouter(handlers *Handlers, authMiddleware *AuthMiddleware, loggingMiddleware *LoggingMiddleware) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - ORDER MATTERS!
	r.Use(middleware.RequestID)      // Generate request ID first
	r.Use(middleware.RealIP)         // Extract real IP
	r.Use(loggingMiddleware.Handler) // Add logger to context with request ID
	r.Use(middleware.Recoverer)      // Panic recovery
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"}, // Expose request ID
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint (no auth required)
	r.Get("/health", handlers.Health)

	// API v1 routes (with authentication)
	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		// Jobs
		r.Post("/jobs/{job}/trigger", handlers.TriggerJob)
		r.Get("/jobs/{job}/parameters", handlers.JobParameters)
		r.Get("/jobs/{job}/status", handlers.JobStatus)
		r.Get("/jobs/{job}/artifacts", handlers.ListArtifacts)

		// Builds
		r.Get("/jobs/{job}/builds/{number}/log", handlers.BuildLog)
		r.Post("/jobs/{job}/builds/{number}/cancel", handlers.CancelBuild)
		r.Get("/jobs/{job}/builds/{number}/artifacts/*", handlers.FetchArtifact)

		// Trigger ledger
		r.Get("/triggered", handlers.ListTriggered)
		r.Delete("/triggered", handlers.ClearTriggered)
	})

	return r
}
