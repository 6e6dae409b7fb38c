package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Detection waterfall metrics
	DetectionTotal    *prometheus.CounterVec
	DetectionDuration prometheus.Histogram
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter

	// Geolocation provider metrics
	ProbeRequests *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec

	// Key-value store metrics
	StoreOperations *prometheus.CounterVec

	// Preference metrics
	MismatchChecks *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on the
// default registry. Use New in tests to avoid duplicate registration.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		DetectionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_total",
			Help:      "Total number of region detections by resolving tier",
		}, []string{"method"}),
		DetectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "Time spent resolving a region detection",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_cache_hits_total",
			Help:      "Total number of detection cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_cache_misses_total",
			Help:      "Total number of detection cache misses",
		}),
		ProbeRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_requests_total",
			Help:      "Total number of geolocation provider requests",
		}, []string{"provider", "status"}),
		ProbeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_request_duration_seconds",
			Help:      "Duration of geolocation provider requests",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5},
		}, []string{"provider"}),
		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of key-value store operations",
		}, []string{"operation", "status"}),
		MismatchChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mismatch_checks_total",
			Help:      "Total number of region mismatch checks by outcome",
		}, []string{"outcome"}),
	}
}

// New creates unregistered metrics, safe to build repeatedly in tests.
func New(namespace string) *Metrics {
	return &Metrics{
		DetectionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_total",
			Help:      "Total number of region detections by resolving tier",
		}, []string{"method"}),
		DetectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "Time spent resolving a region detection",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_cache_hits_total",
			Help:      "Total number of detection cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_cache_misses_total",
			Help:      "Total number of detection cache misses",
		}),
		ProbeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_requests_total",
			Help:      "Total number of geolocation provider requests",
		}, []string{"provider", "status"}),
		ProbeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_request_duration_seconds",
			Help:      "Duration of geolocation provider requests",
		}, []string{"provider"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of key-value store operations",
		}, []string{"operation", "status"}),
		MismatchChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mismatch_checks_total",
			Help:      "Total number of region mismatch checks by outcome",
		}, []string{"outcome"}),
	}
}
