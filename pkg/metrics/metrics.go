// Package metrics exposes round-level Prometheus instrumentation, kept
// on a private registry rather than the global default one, per the
// no-globals rule.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry wraps a private prometheus.Registry with the counters and
// gauges the scheduler updates once per round.
type Registry struct {
	reg *prometheus.Registry

	RoundDuration  prometheus.Histogram
	Decisions      *prometheus.CounterVec
	OrdersExecuted *prometheus.CounterVec
	OrdersRejected *prometheus.CounterVec
	BreakerTrips   *prometheus.CounterVec
	AccountValue   *prometheus.GaugeVec
}

// NewRegistry constructs and registers every metric on a fresh, private
// registry.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.RoundDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_round_duration_seconds",
		Help:    "Wall-clock duration of a completed round.",
		Buckets: prometheus.DefBuckets,
	})
	r.Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_decisions_total",
		Help: "Decisions made, by model and action.",
	}, []string{"model", "action"})
	r.OrdersExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_orders_executed_total",
		Help: "Orders filled, by model and side.",
	}, []string{"model", "side"})
	r.OrdersRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_orders_rejected_total",
		Help: "Orders rejected, by model and reason.",
	}, []string{"model", "reason"})
	r.BreakerTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_breaker_trips_total",
		Help: "Circuit breaker trips, by model.",
	}, []string{"model"})
	r.AccountValue = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arena_account_total_value_usd",
		Help: "Current total account value, by model.",
	}, []string{"model"})

	r.reg.MustRegister(
		r.RoundDuration,
		r.Decisions,
		r.OrdersExecuted,
		r.OrdersRejected,
		r.BreakerTrips,
		r.AccountValue,
	)
	return r
}

// Registerer exposes the private registry for an HTTP /metrics handler.
func (r *Registry) Registerer() *prometheus.Registry { return r.reg }
