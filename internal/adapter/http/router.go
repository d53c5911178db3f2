package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/iho/goportfolio/internal/adapter/http/handler"
	"github.com/iho/goportfolio/internal/adapter/http/middleware"
	"github.com/iho/goportfolio/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	PortfolioHandler *handler.PortfolioHandler
	OperationHandler *handler.OperationHandler
	HoldingHandler   *handler.HoldingHandler
	LedgerHandler    *handler.LedgerHandler
	HealthHandler    *handler.HealthHandler

	Logger           zerolog.Logger
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	HTTPMetrics      *middleware.HTTPMetrics
	// MetricsHandler is served on /metrics when set.
	MetricsHandler http.Handler
	CORSOrigins    []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Wrap)
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.IdempotencyKeyHeader},
			ExposedHeaders: []string{middleware.IdempotencyReplayHeader},
			MaxAge:         300,
		}))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/portfolios", func(r chi.Router) {
			r.Post("/", cfg.PortfolioHandler.Create)
			r.Get("/", cfg.PortfolioHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.PortfolioHandler.Get)
				r.Get("/holdings", cfg.HoldingHandler.Holdings)
				r.Post("/valuation", cfg.HoldingHandler.Valuation)

				r.Route("/operations", func(r chi.Router) {
					r.Get("/", cfg.OperationHandler.List)
					r.Post("/", cfg.OperationHandler.Create)
					r.Post("/validate", cfg.OperationHandler.Validate)
					r.Patch("/{opID}", cfg.OperationHandler.Patch)
					r.Delete("/{opID}", cfg.OperationHandler.Delete)
				})
			})
		})

		r.Get("/rates", cfg.HoldingHandler.Rate)
		r.Get("/ledger/consistency", cfg.LedgerHandler.Consistency)
	})

	return r
}
