package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across both the addon
// protocol and the configuration API.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "catalogcore",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// --- C2 cache façade ---

var (
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "cache", Name: "hits_total", Help: "Fresh cache hits."},
		[]string{"key_space"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "cache", Name: "misses_total", Help: "Cache misses requiring production."},
		[]string{"key_space"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "cache", Name: "errors_total", Help: "Producer failures written as negative entries."},
		[]string{"key_space", "kind"},
	)
	CacheCachedErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "cache", Name: "cached_errors_total", Help: "Negative-cache hits returned without producing."},
		[]string{"key_space", "kind"},
	)
	CacheCorruptedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "cache", Name: "corrupted_total", Help: "Envelopes that failed to deserialize and were self-healed."},
		[]string{"key_space"},
	)
	CacheDeduplicatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "cache", Name: "deduplicated_total", Help: "Requests coalesced onto an in-flight producer."},
		[]string{"key_space"},
	)
	CacheStaleServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "cache", Name: "stale_served_total", Help: "Stale values served while a background refresh runs."},
		[]string{"key_space"},
	)
	CacheInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "catalogcore", Subsystem: "cache", Name: "in_flight", Help: "Number of producers currently executing."},
	)
)

// --- C3 upstream client ---

var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "upstream", Name: "requests_total", Help: "Upstream HTTP requests by outcome."},
		[]string{"outcome"},
	)
	UpstreamRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "catalogcore", Subsystem: "upstream", Name: "request_duration_seconds", Help: "Upstream HTTP request duration.", Buckets: prometheus.DefBuckets},
	)
	UpstreamBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "catalogcore", Subsystem: "upstream", Name: "breaker_state", Help: "0=closed 1=half-open 2=open."},
	)
	UpstreamBucketWaiters = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "catalogcore", Subsystem: "upstream", Name: "bucket_waiters", Help: "Current token-bucket waiter queue depth."},
	)
	UpstreamRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "upstream", Name: "retries_total", Help: "Total retry attempts issued."},
	)
)

// --- C4 config resolver ---

var (
	ConfigResolverHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "configresolver", Name: "hits_total", Help: "Resolver cache hits."},
	)
	ConfigResolverLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "configresolver", Name: "loads_total", Help: "Store loads performed (post single-flight)."},
	)
	ConfigResolverOwnershipDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "configresolver", Name: "ownership_denied_total", Help: "Ownership check failures."},
	)
)

// --- C5 dataset engine ---

var (
	DatasetRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "catalogcore", Subsystem: "dataset", Name: "refresh_duration_seconds", Help: "Duration of a full refresh cycle.", Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600}},
	)
	DatasetRefreshFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "catalogcore", Subsystem: "dataset", Name: "refresh_failures_total", Help: "Refresh cycles that failed and left the previous dataset active."},
	)
	DatasetTitlesIndexed = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "catalogcore", Subsystem: "dataset", Name: "titles_indexed", Help: "Titles in the currently active dataset."},
	)
	DatasetLastRefreshUnix = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "catalogcore", Subsystem: "dataset", Name: "last_refresh_unixtime", Help: "Unix time of the last successful refresh."},
	)
)

// All returns every catalogcore-specific collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal, CacheCachedErrorsTotal,
		CacheCorruptedTotal, CacheDeduplicatedTotal, CacheStaleServedTotal, CacheInFlight,
		UpstreamRequestsTotal, UpstreamRequestDuration, UpstreamBreakerState,
		UpstreamBucketWaiters, UpstreamRetriesTotal,
		ConfigResolverHitsTotal, ConfigResolverLoadsTotal, ConfigResolverOwnershipDeniedTotal,
		DatasetRefreshDuration, DatasetRefreshFailuresTotal, DatasetTitlesIndexed, DatasetLastRefreshUnix,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process
// collectors and every catalogcore collector registered.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
