package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flow-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Upstream calls by operation and outcome
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "upstream_calls_total",
			Help:      "Total calls to the Flow upstream",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "upstream_duration_seconds",
			Help:      "Flow upstream call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 120},
		},
		[]string{"operation"},
	)

	UpstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "upstream_retries_total",
			Help:      "Total retried upstream calls",
		},
		[]string{"operation", "reason"},
	)

	// Upload cache lookups
	UploadCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "upload_cache_lookups_total",
			Help:      "Upload cache lookups by result",
		},
		[]string{"backend", "result"},
	)

	// Image uploads to the upstream
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "uploads_total",
			Help:      "Total image uploads to the upstream",
		},
		[]string{"content_type", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded to the upstream",
		},
		[]string{"content_type"},
	)

	// Mirror operations
	MirrorOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "mirror_operations_total",
			Help:      "Total durable mirror operations",
		},
		[]string{"backend", "status"},
	)

	MirrorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "mirror_duration_seconds",
			Help:      "Durable mirror upload duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
		},
		[]string{"backend"},
	)

	// Generations submitted
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "flow_api",
			Name:      "generations_total",
			Help:      "Total generation requests by kind and model key",
		},
		[]string{"kind", "model_key", "status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpstreamCall records one upstream round trip
func RecordUpstreamCall(operation, outcome string, durationSec float64) {
	UpstreamCallsTotal.WithLabelValues(operation, outcome).Inc()
	UpstreamDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordRetry records a scheduled retry
func RecordRetry(operation, reason string) {
	UpstreamRetriesTotal.WithLabelValues(operation, reason).Inc()
}

// RecordCacheLookup records an upload cache hit or miss
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	UploadCacheLookups.WithLabelValues(backend, result).Inc()
}

// RecordUpload records an image upload
func RecordUpload(contentType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(contentType, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(contentType).Add(float64(bytes))
	}
}

// RecordMirror records a durable mirror upload
func RecordMirror(backend, status string, durationSec float64) {
	MirrorOperationsTotal.WithLabelValues(backend, status).Inc()
	MirrorDuration.WithLabelValues(backend).Observe(durationSec)
}

// RecordGeneration records a submitted generation
func RecordGeneration(kind, modelKey, status string) {
	GenerationsTotal.WithLabelValues(kind, modelKey, status).Inc()
}
