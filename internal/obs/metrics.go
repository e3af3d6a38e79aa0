package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CoreMetrics holds the self-instrumentation counters a running Core
// updates: the per-channel and per-thread soft-error counts that would
// otherwise only be visible by polling Core.Stats() or a Board's
// PrintStatistics.
type CoreMetrics struct {
	registry *prometheus.Registry

	NodesAllocated  prometheus.Counter
	BlackboardSkips prometheus.Counter
	AggregateDrops  prometheus.Counter
	NestingErrors   prometheus.Counter
	Snapshots       prometheus.Counter
}

// NewCoreMetrics creates an independent Prometheus registry (avoiding
// collector conflicts across multiple Core instances in the same process,
// same rationale as the teacher's PrometheusHandler) and registers Core's
// instrument set on it.
func NewCoreMetrics() *CoreMetrics {
	registry := prometheus.NewRegistry()

	m := &CoreMetrics{
		registry: registry,
		NodesAllocated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: "caliper",
			Name:      "metadata_nodes_allocated_total",
			Help:      "Metadata tree nodes allocated since process start.",
		}),
		BlackboardSkips: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: "caliper",
			Name:      "blackboard_skipped_total",
			Help:      "Blackboard updates dropped for lack of table room.",
		}),
		AggregateDrops: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: "caliper",
			Name:      "aggregation_dropped_total",
			Help:      "Aggregation records dropped on trie/leaf exhaustion.",
		}),
		NestingErrors: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: "caliper",
			Name:      "nesting_errors_total",
			Help:      "end() calls with no matching begin().",
		}),
		Snapshots: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: "caliper",
			Name:      "snapshots_total",
			Help:      "Snapshots composed via push_snapshot or pull_snapshot.",
		}),
	}

	return m
}

// Handler returns an http.Handler serving this registry's /metrics scrape
// endpoint.
func (m *CoreMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
