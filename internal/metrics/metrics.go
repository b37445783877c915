package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counts classification outcomes ("product", "not_product", "invalid").
var Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "detector_classifications_total",
	Help: "Total number of page classifications by outcome",
}, []string{"outcome"})

// Counts which cascade step produced a positive classification.
var ClassificationSteps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "detector_classification_steps_total",
	Help: "Positive classifications by the cascade step that matched",
}, []string{"step"})

// Search adapter metrics
var (
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_search_requests_total",
		Help: "Total number of outbound requests made by the search adapters",
	}, []string{"adapter"})

	SearchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_search_errors_total",
		Help: "Total number of failed search adapter lookups",
	}, []string{"adapter"})

	SearchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "detector_search_latency_seconds",
		Help:    "Time taken by outbound search requests",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // From 50ms to ~25s
	}, []string{"adapter"})
)

// Counts cache lookups by result ("hit", "miss", "expired").
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "detector_cache_lookups_total",
	Help: "Cache lookups by result",
}, []string{"result"})
