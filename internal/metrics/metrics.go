package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion metrics
var (
	// ReportsIngestedTotal tracks ingested SARIF reports by outcome
	ReportsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarif_reports_ingested_total",
			Help: "Total number of SARIF reports ingested by outcome",
		},
		[]string{"outcome"}, // "ok", "empty", "invalid_json", "schema_error"
	)

	// ReportIngestDuration tracks validate-and-normalize duration
	ReportIngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sarif_report_ingest_duration_seconds",
			Help:    "SARIF report ingestion duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// ReportSizeBytes tracks ingested report payload sizes
	ReportSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sarif_report_size_bytes",
			Help:    "SARIF report payload size in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	// FindingsNormalizedTotal tracks normalized findings by severity
	FindingsNormalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarif_findings_normalized_total",
			Help: "Total number of normalized findings by severity",
		},
		[]string{"severity"},
	)

	// SchemaViolationsTotal tracks individual schema field violations
	SchemaViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sarif_schema_violations_total",
			Help: "Total number of schema field violations across rejected reports",
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks in-flight HTTP requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// HTTPRequestsRateLimited tracks requests rejected by the rate limiter
	HTTPRequestsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total number of rate-limited HTTP requests",
		},
	)
)

// Storage metrics
var (
	// ReportsStored tracks stored reports
	ReportsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reports_stored",
			Help: "Number of reports currently stored",
		},
	)

	// StorageQueryDuration tracks repository query duration by operation
	StorageQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_query_duration_seconds",
			Help:    "Repository query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)
)
