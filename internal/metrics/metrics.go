// Package metrics holds the Prometheus collectors for exchange traffic,
// market checks, synthesized jobs and the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics is registered against a caller-supplied registry so tests can use
// a fresh one.
type Metrics struct {
	ExchangeRequests  *prometheus.CounterVec   // labels: endpoint, outcome
	ExchangeLatency   *prometheus.HistogramVec // labels: endpoint
	Signals           *prometheus.CounterVec   // labels: pair, signal
	ChecksUnavailable prometheus.Counter
	PortfolioValue    prometheus.Gauge
	PortfolioDegraded prometheus.Counter
	JobsSynthesized   *prometheus.CounterVec // labels: kind
	APIRequests       *prometheus.CounterVec // labels: method, route, status

	gatherer prometheus.Gatherer
}

// New creates and registers every collector on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ExchangeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "kraken_requests_total", Help: "Exchange requests by endpoint and outcome"},
			[]string{"endpoint", "outcome"},
		),
		ExchangeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "kraken_request_duration_seconds", Help: "Exchange request latency", Buckets: prometheus.DefBuckets},
			[]string{"endpoint"},
		),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "market_signals_total", Help: "Signals produced by market checks"},
			[]string{"pair", "signal"},
		),
		ChecksUnavailable: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "market_checks_unavailable_total", Help: "Market checks that could not produce an analysis"},
		),
		PortfolioValue: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "portfolio_value_quote", Help: "Last portfolio valuation in the quote currency"},
		),
		PortfolioDegraded: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "portfolio_valuations_degraded_total", Help: "Valuations that fell back to zero"},
		),
		JobsSynthesized: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "jobs_synthesized_total", Help: "Job descriptors produced"},
			[]string{"kind"},
		),
		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "api_requests_total", Help: "HTTP API requests"},
			[]string{"method", "route", "status"},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		m.ExchangeRequests, m.ExchangeLatency, m.Signals, m.ChecksUnavailable,
		m.PortfolioValue, m.PortfolioDegraded, m.JobsSynthesized, m.APIRequests,
	)
	return m
}

// ObserveRequest implements kraken.Observer.
func (m *Metrics) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	m.ExchangeRequests.WithLabelValues(endpoint, outcome).Inc()
	m.ExchangeLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordValuation updates the portfolio gauge, or counts a degraded result.
func (m *Metrics) RecordValuation(total decimal.Decimal, degraded bool) {
	if degraded {
		m.PortfolioDegraded.Inc()
		return
	}
	m.PortfolioValue.Set(total.InexactFloat64())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
