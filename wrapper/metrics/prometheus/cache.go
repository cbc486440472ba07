package prometheus

import (
	"context"
	"time"

	"github.com/cachetier/httpcache"
	"github.com/cachetier/httpcache/wrapper/metrics"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultSuccess = "success"
	resultError   = "error"
)

// InstrumentedBackend wraps an httpcache.Backend with metrics recording.
type InstrumentedBackend struct {
	inner     httpcache.Backend
	collector metrics.Collector
	backend   string // backend name: "memory", "redis", "leveldb", etc.
}

// NewInstrumentedBackend wraps inner so every Get/Set/Delete/Clear call is
// recorded against collector under the given backend name. A nil collector
// uses metrics.DefaultCollector.
func NewInstrumentedBackend(inner httpcache.Backend, backend string, collector metrics.Collector) *InstrumentedBackend {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedBackend{inner: inner, collector: collector, backend: backend}
}

func (c *InstrumentedBackend) Get(ctx context.Context, key string) (*httpcache.CacheEntry, bool, error) {
	start := time.Now()
	entry, ok, err := c.inner.Get(ctx, key)
	duration := time.Since(start)

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case ok:
		result = resultHit
	}
	c.collector.RecordCacheOperation("get", c.backend, result, duration)

	return entry, ok, err
}

func (c *InstrumentedBackend) Set(ctx context.Context, key string, entry *httpcache.CacheEntry, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, entry, ttl)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.collector.RecordCacheOperation("set", c.backend, result, duration)

	return err
}

func (c *InstrumentedBackend) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := c.inner.Delete(ctx, key)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.collector.RecordCacheOperation("delete", c.backend, result, duration)

	return err
}

func (c *InstrumentedBackend) Clear(ctx context.Context) error {
	start := time.Now()
	err := c.inner.Clear(ctx)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.collector.RecordCacheOperation("clear", c.backend, result, duration)

	return err
}

var _ httpcache.Backend = (*InstrumentedBackend)(nil)
