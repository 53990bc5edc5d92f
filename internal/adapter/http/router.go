package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/walletledger/internal/adapter/http/handler"
	"github.com/iho/walletledger/internal/adapter/http/middleware"
	"github.com/iho/walletledger/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler *handler.AccountHandler
	LedgerHandler  *handler.LedgerHandler
	AdminHandler   *handler.AdminHandler
	HealthHandler  *handler.HealthHandler

	Logger zerolog.Logger

	// Optional
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter
	Idempotency *middleware.IdempotencyMiddleware
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		if cfg.Idempotency != nil {
			r.Use(cfg.Idempotency.Wrap)
		}

		r.Route("/accounts/{holder}", func(r chi.Router) {
			r.Get("/balances", cfg.AccountHandler.GetBalances)
			r.Get("/balances/{currency}", cfg.AccountHandler.GetBalance)
			r.Post("/debit", cfg.AccountHandler.Debit)
			r.Post("/credit", cfg.AccountHandler.Credit)
			r.Get("/transactions", cfg.AccountHandler.ListTransactions)
			r.Get("/reconciliation", cfg.LedgerHandler.ReconcileHolder)
		})

		r.Get("/reconciliation", cfg.LedgerHandler.Report)

		r.Get("/admin", cfg.AdminHandler.Get)
		r.Put("/admin", cfg.AdminHandler.Set)
	})

	return r
}
