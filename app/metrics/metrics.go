package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_comb_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paper_comb_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// DocumentsBuilt counts builds by template and outcome: ok, malformed,
	// template_not_found, render_error, fetch_error or error.
	DocumentsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_comb_documents_built_total",
			Help: "Total number of document builds by template and result",
		},
		[]string{"template", "result"},
	)

	FeedEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paper_comb_feed_entries",
			Help:    "Number of entries per parsed feed",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_comb_upstream_requests_total",
			Help: "Total number of upstream feed requests by result",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paper_comb_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_comb_document_cache_lookups_total",
			Help: "Total number of document cache lookups by result",
		},
		[]string{"result"},
	)
)
