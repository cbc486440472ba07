package blobcache

import (
	"context"
	"testing"
	"time"

	_ "gocloud.dev/blob/memblob" // register mem:// scheme

	"github.com/cachetier/httpcache/internal/cachetest"
)

func setupBenchmarkCache(b *testing.B) (*Cache, func()) {
	b.Helper()

	ctx := context.Background()
	cache, err := New(ctx, Config{
		BucketURL: "mem://",
		KeyPrefix: "bench/",
		Timeout:   10 * time.Second,
	})
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	return cache, func() { _ = cache.Close() }
}

func BenchmarkBlobCacheSet(b *testing.B) {
	cache, cleanup := setupBenchmarkCache(b)
	defer cleanup()
	ctx := context.Background()
	entry := cachetest.Entry(string(make([]byte, 1024)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Set(ctx, "benchmark-key", entry, 0)
	}
}

func BenchmarkBlobCacheGet(b *testing.B) {
	cache, cleanup := setupBenchmarkCache(b)
	defer cleanup()
	ctx := context.Background()
	entry := cachetest.Entry(string(make([]byte, 1024)))
	_ = cache.Set(ctx, "benchmark-key", entry, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = cache.Get(ctx, "benchmark-key")
	}
}
