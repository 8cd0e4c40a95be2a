// Package metrics holds the Prometheus collectors for the splitbill
// server. A nil *Metrics is a valid no-op receiver so tests and tools can
// run without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the server exports.
type Metrics struct {
	rpcRequests      *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	recomputes       *prometheus.CounterVec
	recomputeSeconds prometheus.Histogram
	splits           *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rpcRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitbill",
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "splitbill",
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling time by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitbill",
			Name:      "balance_recomputes_total",
			Help:      "Balance recomputations by outcome.",
		}, []string{"outcome"}),
		recomputeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "splitbill",
			Name:      "balance_recompute_duration_seconds",
			Help:      "Time spent netting and reconciling balances.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		splits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitbill",
			Name:      "expense_splits_total",
			Help:      "Expenses split by split type.",
		}, []string{"split_type"}),
	}
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

// ObserveRecompute records one balance recomputation.
func (m *Metrics) ObserveRecompute(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(outcome).Inc()
	m.recomputeSeconds.Observe(d.Seconds())
}

// CountSplit records one expense split.
func (m *Metrics) CountSplit(splitType string) {
	if m == nil {
		return
	}
	m.splits.WithLabelValues(splitType).Inc()
}
