package compresscache

import (
	"compress/gzip"
	"context"
	"strings"
	"testing"

	"github.com/cachetier/httpcache"
)

func BenchmarkGzipSet(b *testing.B) {
	ctx := context.Background()
	cache, _ := NewGzip(httpcache.NewMemoryCache(1000, 0), gzip.DefaultCompression)
	entry := entryWithBody(strings.Repeat("benchmark data ", 100))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Set(ctx, "key", entry, httpcache.NoTTL)
	}
}

func BenchmarkGzipGet(b *testing.B) {
	ctx := context.Background()
	cache, _ := NewGzip(httpcache.NewMemoryCache(1000, 0), gzip.DefaultCompression)
	entry := entryWithBody(strings.Repeat("benchmark data ", 100))
	_ = cache.Set(ctx, "key", entry, httpcache.NoTTL)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = cache.Get(ctx, "key")
	}
}
