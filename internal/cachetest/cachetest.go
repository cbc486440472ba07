// Package cachetest provides a shared conformance suite for
// httpcache.Backend implementations, exercised by every backend adapter
// package against its own live or in-process store.
package cachetest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cachetier/httpcache"
	"github.com/stretchr/testify/require"
)

// Entry builds a deterministic CacheEntry for use as conformance-suite
// fixture data.
func Entry(body string) *httpcache.CacheEntry {
	return &httpcache.CacheEntry{
		StatusCode: http.StatusOK,
		Reason:     "200 OK",
		URL:        "https://example.test/resource",
		Headers: http.Header{
			"Content-Type": []string{"text/plain"},
		},
		Body:      []byte(body),
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Backend exercises the full httpcache.Backend contract: miss before Set,
// hit with an equal entry after Set, absence after Delete, and absence of
// every key after Clear.
func Backend(t *testing.T, backend httpcache.Backend) {
	t.Helper()
	ctx := context.Background()
	key := "cachetest-key"

	_, ok, err := backend.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok, "key must be absent before it is ever set")

	entry := Entry("hello, cache")
	require.NoError(t, backend.Set(ctx, key, entry, httpcache.NoTTL))

	got, ok, err := backend.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok, "key must be present immediately after Set")
	require.Equal(t, entry.StatusCode, got.StatusCode)
	require.Equal(t, entry.Body, got.Body)
	require.Equal(t, entry.Headers.Get("Content-Type"), got.Headers.Get("Content-Type"))

	require.NoError(t, backend.Delete(ctx, key))
	_, ok, err = backend.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok, "key must be absent after Delete")

	require.NoError(t, backend.Set(ctx, "a", Entry("a"), httpcache.NoTTL))
	require.NoError(t, backend.Set(ctx, "b", Entry("b"), httpcache.NoTTL))
	require.NoError(t, backend.Clear(ctx))

	for _, k := range []string{"a", "b"} {
		_, ok, err := backend.Get(ctx, k)
		require.NoError(t, err)
		require.False(t, ok, "key %q must be absent after Clear", k)
	}
}

// BackendTTL exercises expiry: an entry stored with a short ttl must
// eventually be absent. Backends that don't support native expiry (e.g.
// disk-only stores relying on an outer Tier for eviction) should not call
// this helper.
func BackendTTL(t *testing.T, backend httpcache.Backend, ttl time.Duration, wait time.Duration) {
	t.Helper()
	ctx := context.Background()
	key := "cachetest-ttl-key"

	require.NoError(t, backend.Set(ctx, key, Entry("expires soon"), ttl))

	_, ok, err := backend.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok, "key must be present immediately after Set")

	time.Sleep(wait)

	_, ok, err = backend.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok, "key must be absent once its ttl elapses")
}
