package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and session-cache Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grounder",
			Name:      "search_requests_total",
			Help:      "Source searcher invocations by outcome",
		},
		[]string{"source", "status"}, // status: "ok" / "error"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grounder",
			Name:      "search_duration_seconds",
			Help:      "Source searcher duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"source"},
	)

	VectorFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grounder",
			Name:      "vector_fallbacks_total",
			Help:      "Vector search fallbacks to keyword search by reason",
		},
		[]string{"reason"}, // "degraded_embedding" / "no_results" / "degenerate_scores"
	)

	ContextCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grounder",
			Name:      "context_cache_total",
			Help:      "Session context cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ContextCacheReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grounder",
			Name:      "context_cache_reloads_total",
			Help:      "Session context cache reloads by trigger",
		},
		[]string{"reason"}, // "empty" / "ttl" / "message_ceiling" / "confidence" / "invalidated"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(VectorFallbacksTotal)
	prometheus.MustRegister(ContextCacheTotal)
	prometheus.MustRegister(ContextCacheReloadsTotal)
	retrievalMetricsRegistered = true
}
