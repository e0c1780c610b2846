// Package observability records what the panels did: a SQLite collection
// log with retention cleanup, and prometheus counters for cache lookups,
// remote calls and collector durations.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors. Construct with NewMetrics.
type Metrics struct {
	CacheLookups    *prometheus.CounterVec
	RemoteCalls     *prometheus.CounterVec
	RemoteDuration  *prometheus.HistogramVec
	CollectDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered (tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qmsearch_cache_lookups_total",
			Help: "Transient cache lookups by result (hit, miss, bypass).",
		}, []string{"result"}),
		RemoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qmsearch_remote_calls_total",
			Help: "Search service calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		RemoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qmsearch_remote_call_duration_seconds",
			Help:    "Search service call latency, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}, []string{"op"}),
		CollectDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qmsearch_collect_duration_seconds",
			Help:    "Collector run time by topic.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"topic"}),
	}
	if reg != nil {
		reg.MustRegister(m.CacheLookups, m.RemoteCalls, m.RemoteDuration, m.CollectDuration)
	}
	return m
}

// ObserveCache counts one cache lookup. Matches store.WithObserver.
func (m *Metrics) ObserveCache(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveRemote counts one settled search service call. Matches
// searchindex.Observer.
func (m *Metrics) ObserveRemote(op, outcome string, elapsed time.Duration) {
	m.RemoteCalls.WithLabelValues(op, outcome).Inc()
	m.RemoteDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveCollect records one collector run.
func (m *Metrics) ObserveCollect(topic string, elapsed time.Duration) {
	m.CollectDuration.WithLabelValues(topic).Observe(elapsed.Seconds())
}
