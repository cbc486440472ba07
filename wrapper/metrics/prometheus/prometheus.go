// Package prometheus provides a Prometheus-backed implementation of
// wrapper/metrics.Collector, plus decorators that wire it onto
// httpcache.Backend and httpcache.Transport.
package prometheus

import (
	"strconv"
	"time"

	"github.com/cachetier/httpcache/wrapper/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	cacheRequests   *prometheus.CounterVec
	cacheOpDuration *prometheus.HistogramVec
	cacheEntries    *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpRespSize    *prometheus.CounterVec
	staleResponses  *prometheus.CounterVec
}

// Config configures a Collector.
type Config struct {
	// Registry is the Prometheus registry to register metrics against. If
	// nil, prometheus.DefaultRegisterer is used.
	Registry prometheus.Registerer

	// Namespace for all metrics. Defaults to "httpcache".
	Namespace string

	// Subsystem for all metrics. Optional.
	Subsystem string
}

// NewCollector creates a Collector registered against the default registry.
func NewCollector() *Collector {
	return NewCollectorWithConfig(Config{})
}

// NewCollectorWithRegistry creates a Collector registered against reg.
func NewCollectorWithRegistry(reg prometheus.Registerer) *Collector {
	return NewCollectorWithConfig(Config{Registry: reg})
}

// NewCollectorWithConfig creates a Collector with full control over
// registry, namespace, and subsystem.
func NewCollectorWithConfig(config Config) *Collector {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = "httpcache"
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "cache_operations_total",
			Help:      "Total number of backend cache operations.",
		}, []string{"operation", "backend", "result"}),
		cacheOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "cache_operation_duration_seconds",
			Help:      "Duration of backend cache operations.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"operation", "backend"}),
		cacheEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "cache_entries",
			Help:      "Current number of entries held by a backend.",
		}, []string{"backend"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests through the cache transport.",
		}, []string{"method", "cache_status", "status_code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests through the cache transport.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5, 10, 30},
		}, []string{"method", "cache_status"}),
		httpRespSize: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "http_response_size_bytes_total",
			Help:      "Total size of HTTP responses through the cache transport.",
		}, []string{"cache_status"}),
		staleResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "stale_responses_served_total",
			Help:      "Total number of stale-if-error responses served on upstream failure.",
		}, []string{"error_type"}),
	}
}

func (c *Collector) RecordCacheOperation(operation, backend, result string, duration time.Duration) {
	c.cacheRequests.WithLabelValues(operation, backend, result).Inc()
	c.cacheOpDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func (c *Collector) RecordCacheEntries(backend string, count int64) {
	c.cacheEntries.WithLabelValues(backend).Set(float64(count))
}

func (c *Collector) RecordHTTPRequest(method, cacheStatus string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, cacheStatus, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, cacheStatus).Observe(duration.Seconds())
}

func (c *Collector) RecordHTTPResponseSize(cacheStatus string, sizeBytes int64) {
	c.httpRespSize.WithLabelValues(cacheStatus).Add(float64(sizeBytes))
}

func (c *Collector) RecordStaleResponse(errorType string) {
	c.staleResponses.WithLabelValues(errorType).Inc()
}

var _ metrics.Collector = (*Collector)(nil)
