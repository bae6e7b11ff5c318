package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch for: p95/p99 increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Disk-cache outcomes per cache (weather, geocoding).
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Cache write failures. Non-fatal individually; a sustained rate means
	// the cache directory is unusable.
	CacheWriteFailuresTotal *prometheus.CounterVec

	// Upstream fetch rate per API (forecast, geocoding) and outcome.
	UpstreamFetchesTotal *prometheus.CounterVec

	// Upstream fetch latency per API. Watch for: p99 approaching the 30s
	// bridge budget.
	UpstreamFetchDuration *prometheus.HistogramVec

	// Rate limit denials at the HTTP boundary.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Disk cache hits",
		},
		[]string{"cache"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Disk cache misses (absent, expired, or unreadable)",
		},
		[]string{"cache"},
	)
	CacheWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheWriteFailuresTotal",
			Help: "Disk cache write failures",
		},
		[]string{"cache"},
	)
	UpstreamFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamFetchesTotal",
			Help: "Upstream provider fetches",
		},
		[]string{"api", "outcome"},
	)
	UpstreamFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamFetchDurationSeconds",
			Help:    "Upstream fetch latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"api"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Requests denied by the rate limiter",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheWriteFailuresTotal,
		UpstreamFetchesTotal,
		UpstreamFetchDuration,
		RateLimitDeniedTotal,
	)
}

// MetricsHandler serves the custom registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
