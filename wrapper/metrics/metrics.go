// Package metrics defines a backend-agnostic interface for collecting
// httpcache operational metrics. Concrete implementations (Prometheus,
// OpenTelemetry, ...) live in subpackages so the core module never depends
// on a specific metrics system.
package metrics

import "time"

// Collector records metrics for cache and transport operations.
type Collector interface {
	// RecordCacheOperation records a single Backend operation.
	// operation is "get", "set", "delete", or "clear"; backend names the
	// wrapped Backend (e.g. "memory", "redis", "leveldb"); result is
	// "hit", "miss", "success", or "error".
	RecordCacheOperation(operation, backend, result string, duration time.Duration)

	// RecordCacheEntries records the current number of entries held by a
	// backend, when the backend can report it.
	RecordCacheEntries(backend string, count int64)

	// RecordHTTPRequest records a request passing through a Transport.
	// cacheStatus is "hit", "miss", "stale", or "bypass".
	RecordHTTPRequest(method, cacheStatus string, statusCode int, duration time.Duration)

	// RecordHTTPResponseSize records the Content-Length of a response
	// passing through a Transport.
	RecordHTTPResponseSize(cacheStatus string, sizeBytes int64)

	// RecordStaleResponse records a stale-if-error response served in
	// place of an upstream failure. errorType is e.g. "network" or
	// "server_error".
	RecordStaleResponse(errorType string)
}

// NoOpCollector implements Collector with no-op operations. It is the
// default when no collector is configured, so instrumentation costs
// nothing until a real collector is wired in.
type NoOpCollector struct{}

func (NoOpCollector) RecordCacheOperation(operation, backend, result string, duration time.Duration) {
}
func (NoOpCollector) RecordCacheEntries(backend string, count int64) {}
func (NoOpCollector) RecordHTTPRequest(method, cacheStatus string, statusCode int, duration time.Duration) {
}
func (NoOpCollector) RecordHTTPResponseSize(cacheStatus string, sizeBytes int64) {}
func (NoOpCollector) RecordStaleResponse(errorType string)                      {}

// DefaultCollector is used whenever a wrapper is constructed without an
// explicit collector.
var DefaultCollector Collector = NoOpCollector{}

var _ Collector = NoOpCollector{}
