package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/goportfolio/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	OperationMutations *prometheus.CounterVec
	MutationRejections *prometheus.CounterVec
	MutationDuration   prometheus.Histogram
	MutationRetries    prometheus.Counter

	// Portfolio metrics
	PortfoliosCreated   prometheus.Counter
	ValuationsComputed  *prometheus.CounterVec
	ConsistencyFailures prometheus.Counter

	// Exchange rate metrics
	RateFetches *prometheus.CounterVec
	RateAge     prometheus.Gauge

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxErrors    prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goportfolio_operation_mutations_total",
				Help: "Total number of accepted ledger mutations by kind",
			},
			[]string{"kind"},
		),
		MutationRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goportfolio_mutation_rejections_total",
				Help: "Total number of rejected ledger mutations by reason",
			},
			[]string{"reason"},
		),
		MutationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "goportfolio_mutation_duration_seconds",
			Help:    "Duration of validated ledger writes",
			Buckets: prometheus.DefBuckets,
		}),
		MutationRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "goportfolio_mutation_retries_total",
			Help: "Total number of ledger writes retried after a transient failure",
		}),

		PortfoliosCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "goportfolio_portfolios_created_total",
			Help: "Total number of portfolios created",
		}),
		ValuationsComputed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goportfolio_valuations_total",
				Help: "Total portfolio valuations by mode",
			},
			[]string{"mode"},
		),
		ConsistencyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "goportfolio_consistency_failures_total",
			Help: "Partitions found inconsistent by reconciliation",
		}),

		RateFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goportfolio_rate_fetches_total",
				Help: "Exchange rate lookups by source and status",
			},
			[]string{"source", "status"},
		),
		RateAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "goportfolio_rate_age_seconds",
			Help: "Age of the exchange rate last served",
		}),

		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "goportfolio_outbox_published_total",
			Help: "Total outbox events published",
		}),
		OutboxErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "goportfolio_outbox_errors_total",
			Help: "Total outbox publish failures",
		}),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goportfolio_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"path"},
		),
	}
}

// RejectionReason maps a validation failure to a low-cardinality label.
func RejectionReason(err error) string {
	for _, r := range rejectionReasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "other"
}

var rejectionReasons = []struct {
	err   error
	label string
}{
	{domain.ErrNegativeHolding, "negative_holding"},
	{domain.ErrCurrencyMismatch, "currency_mismatch"},
	{domain.ErrOperationNotFound, "not_found"},
	{domain.ErrPortfolioNotFound, "not_found"},
	{domain.ErrUnknownAsset, "unknown_asset"},
	{domain.ErrDuplicateOperation, "duplicate"},
	{domain.ErrInvalidQuantity, "invalid"},
	{domain.ErrInvalidPrice, "invalid"},
	{domain.ErrInvalidKind, "invalid"},
	{domain.ErrInvalidCurrency, "invalid"},
	{domain.ErrInvalidAssetSymbol, "invalid"},
	{domain.ErrAmountTooLarge, "invalid"},
	{domain.ErrAmountTooPrecise, "invalid"},
}
