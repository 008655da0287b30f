package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Rrens/gladius/internal/api/handler"
	customMiddleware "github.com/Rrens/gladius/internal/api/middleware"
	"github.com/Rrens/gladius/internal/config"
	"github.com/Rrens/gladius/internal/llm"
)

// Dependencies are the components served by the HTTP API
type Dependencies struct {
	Audits    handler.AuditService
	LLMRouter *llm.Router
	Ready     map[string]handler.ReadinessCheck
	// Cache is nil when the intel cache is disabled
	Cache handler.Flusher
	// Limiter is nil when rate limiting is disabled
	Limiter customMiddleware.Limiter
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	auditHandler := handler.NewAuditHandler(deps.Audits)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Ready))

		r.Group(func(r chi.Router) {
			if deps.Limiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(deps.Limiter).Limit)
			}

			if deps.LLMRouter != nil {
				r.Get("/llm-providers", handler.ListLLMProviders(deps.LLMRouter))
			}

			// Cache management
			r.Post("/cache/flush", handler.FlushCache(deps.Cache))

			r.Route("/audits", func(r chi.Router) {
				r.Post("/", auditHandler.Create)

				r.Route("/{auditID}", func(r chi.Router) {
					r.Get("/", auditHandler.Get)
					r.Delete("/", auditHandler.Delete)
					r.Post("/messages", auditHandler.SendMessage)
					r.Post("/restart", auditHandler.Restart)
				})
			})
		})
	})

	return r
}
