// Package compresscache wraps an httpcache.Backend with automatic
// compression of the cached response body, trading CPU for storage and
// network bandwidth. Supports gzip, brotli, and snappy.
package compresscache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cachetier/httpcache"
)

// Algorithm identifies a supported compression codec.
type Algorithm int

const (
	// Gzip offers a good balance of ratio and speed.
	Gzip Algorithm = iota
	// Brotli gives the best compression ratio at the cost of speed.
	Brotli
	// Snappy is the fastest, at a lower compression ratio.
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// marker byte values; 0 means the body was stored uncompressed (e.g. it
// was empty, or compression failed and the raw body was kept as a
// fallback).
const (
	markerUncompressed byte = 0
)

func marker(a Algorithm) byte { return byte(a) + 1 }

// Stats holds cumulative compression statistics for a Cache.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
}

// CompressionRatio returns CompressedBytes/UncompressedBytes, or 0 if no
// bytes have been observed.
func (s Stats) CompressionRatio() float64 {
	if s.UncompressedBytes == 0 {
		return 0
	}
	return float64(s.CompressedBytes) / float64(s.UncompressedBytes)
}

type codec struct {
	compress   func([]byte) ([]byte, error)
	decompress func([]byte) ([]byte, error)
}

// Cache is an httpcache.Backend decorator that compresses CacheEntry.Body
// before delegating to the wrapped backend, and decompresses it after
// reading back. Headers and status metadata are left untouched.
type Cache struct {
	inner     httpcache.Backend
	algorithm Algorithm
	codec     codec

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

var _ httpcache.Backend = (*Cache)(nil)

func newCache(inner httpcache.Backend, algorithm Algorithm, c codec) (*Cache, error) {
	if inner == nil {
		return nil, fmt.Errorf("compresscache: inner backend cannot be nil")
	}
	return &Cache{inner: inner, algorithm: algorithm, codec: c}, nil
}

// Get implements httpcache.Backend, decompressing the stored body before
// returning the entry.
func (c *Cache) Get(ctx context.Context, key string) (*httpcache.CacheEntry, bool, error) {
	entry, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return entry, ok, err
	}
	if len(entry.Body) == 0 {
		return entry, true, nil
	}

	body, wasCompressed, err := c.decodeBody(entry.Body)
	if err != nil {
		return nil, false, fmt.Errorf("compresscache: decompressing entry for key %q: %w", key, err)
	}
	_ = wasCompressed
	out := *entry
	out.Body = body
	return &out, true, nil
}

// Set implements httpcache.Backend, compressing the entry's body before
// delegating to the wrapped backend. A compression failure falls back to
// storing the body uncompressed rather than losing the entry.
func (c *Cache) Set(ctx context.Context, key string, entry *httpcache.CacheEntry, ttl time.Duration) error {
	stored := *entry
	stored.Body = c.encodeBody(key, entry.Body)
	return c.inner.Set(ctx, key, &stored, ttl)
}

// Delete implements httpcache.Backend.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

// Clear implements httpcache.Backend.
func (c *Cache) Clear(ctx context.Context) error {
	return c.inner.Clear(ctx)
}

// Stats returns a snapshot of cumulative compression statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		CompressedBytes:   c.compressedBytes.Load(),
		UncompressedBytes: c.uncompressedBytes.Load(),
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
	}
}

func (c *Cache) encodeBody(key string, body []byte) []byte {
	if len(body) == 0 {
		return []byte{markerUncompressed}
	}
	compressed, err := c.codec.compress(body)
	if err != nil {
		httpcache.GetLogger().Warn("compresscache: compression failed, storing uncompressed",
			"key", key, "algorithm", c.algorithm.String(), "error", err)
		c.uncompressedCount.Add(1)
		c.uncompressedBytes.Add(int64(len(body)))
		return append([]byte{markerUncompressed}, body...)
	}

	c.compressedCount.Add(1)
	c.compressedBytes.Add(int64(len(compressed)))
	c.uncompressedBytes.Add(int64(len(body)))
	return append([]byte{marker(c.algorithm)}, compressed...)
}

func (c *Cache) decodeBody(data []byte) (body []byte, wasCompressed bool, err error) {
	if len(data) == 0 {
		return data, false, nil
	}
	if data[0] == markerUncompressed {
		return data[1:], false, nil
	}
	decompressed, err := c.codec.decompress(data[1:])
	if err != nil {
		return nil, false, err
	}
	return decompressed, true, nil
}
