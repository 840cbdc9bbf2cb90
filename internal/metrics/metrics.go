package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popcorn",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "popcorn",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	TMDBRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popcorn",
		Name:      "tmdb_requests_total",
		Help:      "Total TMDB API requests by endpoint and result status.",
	}, []string{"endpoint", "status"})

	TMDBRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "popcorn",
		Name:      "tmdb_request_duration_seconds",
		Help:      "TMDB API request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	CompletionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popcorn",
		Name:      "completion_requests_total",
		Help:      "Total chat completion requests by result status.",
	}, []string{"status"})

	CompletionRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "popcorn",
		Name:      "completion_request_duration_seconds",
		Help:      "Chat completion request duration in seconds.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	LookupFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popcorn",
		Name:      "search_lookup_failures_total",
		Help:      "Candidate lookups that failed and were treated as no hit, by kind.",
	}, []string{"kind"})

	SearchGenerationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popcorn",
		Name:      "search_generations_total",
		Help:      "Search generations by outcome (started, settled, failed, empty).",
	}, []string{"outcome"})

	SearchStaleDiscardsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "popcorn",
		Name:      "search_stale_discards_total",
		Help:      "Asynchronous pipeline results discarded because a newer query or a clear superseded them.",
	})

	SearchSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "popcorn",
		Name:      "search_sessions_active",
		Help:      "Number of live search sessions.",
	})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "popcorn",
		Name:      "cache_hits_total",
		Help:      "Total number of TMDB response cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "popcorn",
		Name:      "cache_misses_total",
		Help:      "Total number of TMDB response cache misses.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TMDBRequestsTotal,
		TMDBRequestDuration,
		CompletionRequestsTotal,
		CompletionRequestDuration,
		LookupFailuresTotal,
		SearchGenerationsTotal,
		SearchStaleDiscardsTotal,
		SearchSessionsActive,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}
