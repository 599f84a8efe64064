package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the exporter.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics. A nil
// *Metrics is valid and disables recording at the call sites.
type Metrics struct {
	// Solana RPC metrics
	rpcCallsTotal    *prometheus.CounterVec
	rpcCallDuration  *prometheus.HistogramVec
	rpcRetries       *prometheus.CounterVec
	rpcRateLimitHits *prometheus.CounterVec

	// Pipeline metrics
	transactionsProcessedTotal *prometheus.CounterVec
	recordsEmittedTotal        *prometheus.CounterVec

	// Symbol resolution metrics
	symbolLookupsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		rpcRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_retries_total",
				Help: "Total number of Solana RPC retry attempts",
			},
			[]string{"method", "reason"},
		),
		rpcRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"method"},
		),
		transactionsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_processed_total",
				Help: "Total number of transactions processed by outcome",
			},
			[]string{"wallet_address", "outcome"},
		),
		recordsEmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "records_emitted_total",
				Help: "Total number of transaction records emitted by category",
			},
			[]string{"wallet_address", "category"},
		),
		symbolLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "symbol_lookups_total",
				Help: "Total number of token symbol lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	m.rpcCallsTotal.WithLabelValues(method, status).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(duration)
}

// RecordRPCRetry records a retry attempt for an RPC method.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.rpcRetries.WithLabelValues(method, reason).Inc()
}

// RecordRateLimitHit records a 429 response from the RPC endpoint.
func (m *Metrics) RecordRateLimitHit(method string) {
	m.rpcRateLimitHits.WithLabelValues(method).Inc()
}

// RecordTransactionProcessed records the outcome of processing one signature.
// Outcomes: "emitted", "no_activity", "fetch_error", "parse_error".
func (m *Metrics) RecordTransactionProcessed(wallet, outcome string) {
	m.transactionsProcessedTotal.WithLabelValues(wallet, outcome).Inc()
}

// RecordEmitted records an emitted transaction record.
func (m *Metrics) RecordEmitted(wallet, category string) {
	m.recordsEmittedTotal.WithLabelValues(wallet, category).Inc()
}

// RecordSymbolLookup records a token symbol lookup.
// Results: "cache_hit", "resolved", "not_found", "error".
func (m *Metrics) RecordSymbolLookup(result string) {
	m.symbolLookupsTotal.WithLabelValues(result).Inc()
}
