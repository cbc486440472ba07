package httpcache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestTransport() *Transport {
	return NewTransport(NewTier(NewMemoryCache(100, 0)))
}

func TestTransportMissStoresAndAnnotates(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte("body")) //nolint:errcheck
	}))
	defer server.Close()

	client := newTestTransport().Client()

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Header.Get(CacheStatusHeader) != CacheStatusMiss {
		t.Errorf("X-Cache = %q, want miss", resp.Header.Get(CacheStatusHeader))
	}
	if hits != 1 {
		t.Errorf("origin hits = %d, want 1", hits)
	}
}

func TestTransportHitServedFromCacheNoOriginHit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte("body")) //nolint:errcheck
	}))
	defer server.Close()

	client := newTestTransport().Client()

	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("second request: unexpected error: %v", err)
	}
	if resp.Header.Get(CacheStatusHeader) != CacheStatusHit {
		t.Errorf("X-Cache = %q, want hits", resp.Header.Get(CacheStatusHeader))
	}
	if resp.Header.Get("Age") == "" {
		t.Error("expected Age header to be set on a cache hit")
	}
	if hits != 1 {
		t.Errorf("origin hits = %d, want still 1", hits)
	}
}

func TestTransportStaleRevalidatesAndMerges304(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n == 1 {
			w.Header().Set("Cache-Control", "max-age=0")
			w.Header().Set("ETag", `"v1"`)
			w.Write([]byte("original body")) //nolint:errcheck
			return
		}
		if inm := r.Header.Get("If-None-Match"); inm == `"v1"` {
			w.Header().Set("ETag", `"v1"`)
			w.Header().Set("X-Revalidated", "yes")
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestTransport().Client()

	first, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}
	firstBody := readAll(t, first)

	second, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("second request: unexpected error: %v", err)
	}
	secondBody := readAll(t, second)

	if second.Header.Get(CacheStatusHeader) != CacheStatusHit {
		t.Errorf("X-Cache = %q, want hits after 304 merge", second.Header.Get(CacheStatusHeader))
	}
	if second.Header.Get("X-Revalidated") != "yes" {
		t.Error("expected fresh header from 304 response to be merged in")
	}
	if string(secondBody) != string(firstBody) {
		t.Errorf("body after 304 merge = %q, want retained body %q", secondBody, firstBody)
	}
	if hits != 2 {
		t.Errorf("origin hits = %d, want 2 (initial + revalidation)", hits)
	}
}

func TestTransportStaleRevalidationModifiedTreatedAsMiss(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=0")
		w.Header().Set("ETag", `"v1"`)
		if n == 1 {
			w.Write([]byte("v1 body")) //nolint:errcheck
			return
		}
		w.Header().Set("ETag", `"v2"`)
		w.Write([]byte("v2 body")) //nolint:errcheck
	}))
	defer server.Close()

	client := newTestTransport().Client()

	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("second request: unexpected error: %v", err)
	}
	body := readAll(t, resp)

	if resp.Header.Get(CacheStatusHeader) != CacheStatusMiss {
		t.Errorf("X-Cache = %q, want miss for a changed revalidation response", resp.Header.Get(CacheStatusHeader))
	}
	if string(body) != "v2 body" {
		t.Errorf("body = %q, want v2 body", body)
	}
	if hits != 2 {
		t.Errorf("origin hits = %d, want 2", hits)
	}
}

func TestTransportRevalidationToNonCacheableStatusInvalidates(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n == 1 {
			w.Header().Set("Cache-Control", "max-age=0")
			w.Header().Set("ETag", `"v1"`)
			w.Write([]byte("v1 body")) //nolint:errcheck
			return
		}
		// The resource now answers with a status outside the default
		// cacheable set ({200}); the stale entry must not survive this.
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestTransport().Client()

	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("second request: unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if resp.Header.Get(CacheStatusHeader) != CacheStatusMiss {
		t.Errorf("X-Cache = %q, want miss for a non-cacheable revalidation response", resp.Header.Get(CacheStatusHeader))
	}

	// A third request must go back to the origin: the stale entry was
	// invalidated rather than left in place to serve a later hit.
	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("third request: unexpected error: %v", err)
	}
	if hits != 3 {
		t.Errorf("origin hits = %d, want 3 (no entry survived to serve a hit)", hits)
	}
}

func TestTransportMutationInvalidatesCachedGET(t *testing.T) {
	var getHits, postHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			atomic.AddInt32(&postHits, 1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		atomic.AddInt32(&getHits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte("body")) //nolint:errcheck
	}))
	defer server.Close()

	client := newTestTransport().Client()

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET: unexpected error: %v", err)
	}
	if resp.Header.Get(CacheStatusHeader) != CacheStatusMiss {
		t.Errorf("first GET: X-Cache = %q, want miss", resp.Header.Get(CacheStatusHeader))
	}

	resp, err = client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET: unexpected error: %v", err)
	}
	if resp.Header.Get(CacheStatusHeader) != CacheStatusHit {
		t.Errorf("second GET: X-Cache = %q, want hits", resp.Header.Get(CacheStatusHeader))
	}

	if _, err := client.Post(server.URL, "text/plain", nil); err != nil {
		t.Fatalf("POST: unexpected error: %v", err)
	}

	resp, err = client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET after mutation: unexpected error: %v", err)
	}
	if resp.Header.Get(CacheStatusHeader) != CacheStatusMiss {
		t.Errorf("GET after mutation: X-Cache = %q, want miss (POST should invalidate)", resp.Header.Get(CacheStatusHeader))
	}
	if getHits != 2 {
		t.Errorf("origin GET hits = %d, want 2 (one before, one after invalidation)", getHits)
	}
	if postHits != 1 {
		t.Errorf("origin POST hits = %d, want 1", postHits)
	}
}

func TestTransportRangeRequestDoesNotInvalidate(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte("body")) //nolint:errcheck
	}))
	defer server.Close()

	client := newTestTransport().Client()

	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("GET: unexpected error: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Range", "bytes=0-3")
	if _, err := client.Do(req); err != nil {
		t.Fatalf("Range GET: unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET after Range: unexpected error: %v", err)
	}
	if resp.Header.Get(CacheStatusHeader) != CacheStatusHit {
		t.Errorf("X-Cache = %q, want hits (a bypassed Range request must not invalidate)", resp.Header.Get(CacheStatusHeader))
	}
	if hits != 2 {
		t.Errorf("origin hits = %d, want 2 (initial GET + bypassed Range GET)", hits)
	}
}

func TestTransportStaleIfErrorServesStaleOnTransportError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=0, stale-if-error=600")
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("cached body")) //nolint:errcheck
	}))

	client := newTestTransport().Client()

	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}
	server.Close() // subsequent forwards fail at the transport level

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("expected stale-if-error to swallow the transport error, got %v", err)
	}
	body := readAll(t, resp)

	if resp.Header.Get(CacheStatusHeader) != CacheStatusHit {
		t.Errorf("X-Cache = %q, want hits (stale-if-error still serves from cache)", resp.Header.Get(CacheStatusHeader))
	}
	if resp.Header.Get("Stale-Warning") == "" {
		t.Error("expected Stale-Warning header on a stale-if-error response")
	}
	if string(body) != "cached body" {
		t.Errorf("body = %q, want cached body", body)
	}
}

func TestTransportErrorPropagatesWithoutStaleIfError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=0")
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("cached body")) //nolint:errcheck
	}))

	client := newTestTransport().Client()

	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}
	server.Close()

	_, err := client.Get(server.URL)
	if err == nil {
		t.Fatal("expected the transport error to propagate without stale-if-error eligibility")
	}
}

func TestTransportUpstream5xxServesStaleWhenEligible(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n == 1 {
			w.Header().Set("Cache-Control", "max-age=0, stale-if-error=600")
			w.Header().Set("ETag", `"v1"`)
			w.Write([]byte("good body")) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestTransport().Client()

	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := readAll(t, resp)

	if resp.Header.Get(CacheStatusHeader) != CacheStatusHit {
		t.Errorf("X-Cache = %q, want hits (stale-if-error still serves from cache)", resp.Header.Get(CacheStatusHeader))
	}
	if string(body) != "good body" {
		t.Errorf("body = %q, want good body", body)
	}
}

func TestTransportNoStoreResponseNotCached(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "no-store")
		w.Write([]byte("body")) //nolint:errcheck
	}))
	defer server.Close()

	client := newTestTransport().Client()

	for i := 0; i < 2; i++ {
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if resp.Header.Get(CacheStatusHeader) != CacheStatusMiss {
			t.Errorf("request %d: X-Cache = %q, want miss", i, resp.Header.Get(CacheStatusHeader))
		}
	}
	if hits != 2 {
		t.Errorf("origin hits = %d, want 2 (no-store never cached)", hits)
	}
}

func TestTransportNonCacheableMethodBypassesCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte("body")) //nolint:errcheck
	}))
	defer server.Close()

	client := newTestTransport().Client()

	for i := 0; i < 2; i++ {
		resp, err := client.Post(server.URL, "text/plain", nil)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if resp.Header.Get(CacheStatusHeader) != "" {
			t.Errorf("request %d: expected no cache annotation for POST", i)
		}
	}
	if hits != 2 {
		t.Errorf("origin hits = %d, want 2 (POST always bypasses cache)", hits)
	}
}

func TestTransportRangeRequestBypassesCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte("body")) //nolint:errcheck
	}))
	defer server.Close()

	client := newTestTransport().Client()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Range", "bytes=0-3")

	for i := 0; i < 2; i++ {
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if resp.Header.Get(CacheStatusHeader) != "" {
			t.Errorf("request %d: expected no cache annotation for a Range request", i)
		}
	}
	if hits != 2 {
		t.Errorf("origin hits = %d, want 2 (Range always bypasses cache)", hits)
	}
}

func TestTransportWithCacheableStatusCodesStores404(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tr := NewTransport(NewTier(NewMemoryCache(10, 0)), WithCacheableStatusCodes(http.StatusOK, http.StatusNotFound))
	client := tr.Client()

	if _, err := client.Get(server.URL); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("second request: unexpected error: %v", err)
	}
	if resp.Header.Get(CacheStatusHeader) != CacheStatusHit {
		t.Errorf("X-Cache = %q, want hits for a cacheable 404", resp.Header.Get(CacheStatusHeader))
	}
	if hits != 1 {
		t.Errorf("origin hits = %d, want 1", hits)
	}
}

func TestTransportWithCacheKeyHeadersSeparatesEntries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte("body for " + r.Header.Get("Authorization"))) //nolint:errcheck
	}))
	defer server.Close()

	tr := NewTransport(NewTier(NewMemoryCache(10, 0)), WithCacheKeyHeaders([]string{"Authorization"}))
	client := tr.Client()

	reqA, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	reqA.Header.Set("Authorization", "token-a")
	reqB, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	reqB.Header.Set("Authorization", "token-b")

	respA, err := client.Do(reqA)
	if err != nil {
		t.Fatalf("request A: unexpected error: %v", err)
	}
	bodyA := readAll(t, respA)

	respB, err := client.Do(reqB)
	if err != nil {
		t.Fatalf("request B: unexpected error: %v", err)
	}
	bodyB := readAll(t, respB)

	if string(bodyA) == string(bodyB) {
		t.Errorf("expected distinct bodies per Authorization value, got %q and %q", bodyA, bodyB)
	}
	if hits != 2 {
		t.Errorf("origin hits = %d, want 2 (one per distinct header value)", hits)
	}

	// Repeating request A should now hit its own cache entry.
	respA2, err := client.Do(reqA)
	if err != nil {
		t.Fatalf("repeat request A: unexpected error: %v", err)
	}
	if respA2.Header.Get(CacheStatusHeader) != CacheStatusHit {
		t.Errorf("X-Cache = %q, want hits on repeat of request A", respA2.Header.Get(CacheStatusHeader))
	}
	if hits != 2 {
		t.Errorf("origin hits = %d, want still 2", hits)
	}
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return body
}
