package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Mutation metrics
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	MutationAmount   *prometheus.HistogramVec
	FeesCollected    *prometheus.CounterVec
	StepFailures     *prometheus.CounterVec

	// Account metrics
	AccountsCreated prometheus.Counter

	// Notification metrics
	ListenerFailures *prometheus.CounterVec
	OutboxPublished  *prometheus.CounterVec
	OutboxErrors     *prometheus.CounterVec

	// API metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	HTTPInFlight       prometheus.Gauge
	RateLimitHits      prometheus.Counter
	IdempotencyReplays prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Mutation metrics
		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_mutations_total",
				Help: "Total balance mutations by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		MutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletledger_mutation_duration_seconds",
				Help:    "Duration of balance mutations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		MutationAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletledger_mutation_amount",
				Help:    "Amounts of committed mutations",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"kind", "currency"},
		),
		FeesCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_fees_collected_total",
				Help: "Fees credited to the admin account",
			},
			[]string{"currency"},
		),
		StepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_step_failures_total",
				Help: "Storage failures by mutation step",
			},
			[]string{"step"},
		),

		// Account metrics
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),

		// Notification metrics
		ListenerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_listener_failures_total",
				Help: "Listener errors and panics by event kind",
			},
			[]string{"kind"},
		),
		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_outbox_published_total",
				Help: "Outbox events published by type",
			},
			[]string{"event_type"},
		),
		OutboxErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_outbox_errors_total",
				Help: "Outbox publishing errors by operation",
			},
			[]string{"operation"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "walletledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletledger_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}),
		IdempotencyReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletledger_idempotency_replays_total",
			Help: "Responses served from the idempotency store",
		}),
	}
}
