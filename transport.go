package httpcache

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
)

// CacheStatusHeader reports the disposition of a cached response to callers.
const CacheStatusHeader = "X-Cache"

const (
	// CacheStatusHit marks a response served from (or validated against)
	// cache, including a stale-if-error response served on upstream failure.
	CacheStatusHit = "hits"
	// CacheStatusMiss marks a response that came from the network and was
	// (or would have been) stored.
	CacheStatusMiss = "miss"
)

// Transport is an http.RoundTripper decorator: it never replaces the
// network transport, it wraps it. Construct with NewTransport and zero or
// more TransportOption values.
type Transport struct {
	transport            http.RoundTripper
	tier                 *Tier
	cacheableStatusCodes map[int]bool
	cacheKeyHeaders      []string
	resilience           []failsafe.Policy[*http.Response]
}

// NewTransport builds a Transport backed by tier, the storage coordinator
// consulted for every request. tier must not be nil.
func NewTransport(tier *Tier, opts ...TransportOption) *Transport {
	t := &Transport{
		transport:            http.DefaultTransport,
		tier:                 tier,
		cacheableStatusCodes: map[int]bool{http.StatusOK: true},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Client returns an *http.Client that uses t as its transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	now := defaultClock.Now()

	if !cacheableRequest(req) {
		resp, err := t.forward(req)
		if err == nil && mutatingMethod(req.Method) {
			t.tier.Invalidate(ctx, fingerprint(http.MethodGet, req.URL.String()))
		}
		return resp, err
	}

	cacheKey := t.key(req)
	cached, hit := t.tier.Lookup(ctx, cacheKey)
	if !hit {
		return t.miss(req, cacheKey, now)
	}

	switch classify(req.Header, cached.Headers, now) {
	case Transparent:
		return t.miss(req, cacheKey, now)

	case Fresh:
		resp := cached.response(req)
		resp.Header.Set("Age", formatAge(currentAge(cached, now)))
		resp.Header.Set(CacheStatusHeader, CacheStatusHit)
		return resp, nil

	default: // Stale: revalidate
		return t.revalidate(req, cacheKey, cached, now)
	}
}

// miss forwards the request, stores a cacheable result, and returns it
// annotated as a miss.
func (t *Transport) miss(req *http.Request, cacheKey string, now time.Time) (*http.Response, error) {
	resp, err := t.forward(req)
	if err != nil {
		return nil, err
	}
	t.maybeStore(req.Context(), cacheKey, resp, now)
	resp.Header.Set(CacheStatusHeader, CacheStatusMiss)
	return resp, nil
}

// revalidate attaches conditional-request validators to a clone of req,
// forwards it, and resolves the outcome:
//   - 304 Not Modified: merge fresh headers over the cached entry, re-store,
//     and return the merged result as a hit.
//   - transport error or 5xx, with stale-if-error eligibility: serve the
//     stale cached entry with a warning, never surfacing the error.
//   - anything else: treat as an ordinary forwarded response and store it
//     like a miss.
func (t *Transport) revalidate(req *http.Request, cacheKey string, cached *CacheEntry, now time.Time) (*http.Response, error) {
	revalReq := req.Clone(req.Context())
	addValidators(revalReq, cached)

	resp, err := t.forward(revalReq)
	if err != nil {
		if staleIfErrorEligible(cached, now) {
			return t.serveStale(req, cached, now), nil
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusNotModified {
		merged := mergeNotModified(cached, resp.Header, now)
		t.tier.Store(req.Context(), cacheKey, merged)
		out := merged.response(req)
		out.Header.Set("Age", formatAge(currentAge(merged, now)))
		out.Header.Set(CacheStatusHeader, CacheStatusHit)
		return out, nil
	}

	if resp.StatusCode >= 500 && staleIfErrorEligible(cached, now) {
		resp.Body.Close()
		return t.serveStale(req, cached, now), nil
	}

	t.maybeStore(req.Context(), cacheKey, resp, now)
	resp.Header.Set(CacheStatusHeader, CacheStatusMiss)
	return resp, nil
}

func (t *Transport) serveStale(req *http.Request, cached *CacheEntry, now time.Time) *http.Response {
	resp := cached.response(req)
	resp.Header.Set("Age", formatAge(currentAge(cached, now)))
	resp.Header.Set(CacheStatusHeader, CacheStatusHit)
	addStaleWarning(resp)
	return resp
}

// mergeNotModified applies RFC 7234 §4.3.4: a 304 response's headers
// override the cached entry's stored headers, but the body is retained.
func mergeNotModified(cached *CacheEntry, freshHeaders http.Header, now time.Time) *CacheEntry {
	merged := &CacheEntry{
		StatusCode: cached.StatusCode,
		Reason:     cached.Reason,
		URL:        cached.URL,
		Headers:    cached.Headers.Clone(),
		Body:       cached.Body,
		Encoding:   cached.Encoding,
		Timestamp:  now,
	}
	for name, values := range freshHeaders {
		merged.Headers[name] = values
	}
	return merged
}

// maybeStore stores resp's body under cacheKey when the response's status
// code is cacheable and it doesn't carry Cache-Control: no-store. A status
// outside the configured cacheable set instead invalidates any existing
// entry at cacheKey, since a resource that no longer answers with a
// cacheable status must not leave a stale cached copy behind. The response
// body is always restored onto resp so the caller can still read it
// regardless of the storage decision.
func (t *Transport) maybeStore(ctx context.Context, cacheKey string, resp *http.Response, now time.Time) {
	entry, err := newEntryFromResponse(resp, now)
	if err != nil {
		GetLogger().Warn("httpcache: buffering response for cache failed", "key", cacheKey, "error", err)
		return
	}
	resp.Body = entry.response(resp.Request).Body

	if !t.cacheableStatusCodes[resp.StatusCode] {
		t.tier.Invalidate(ctx, cacheKey)
		return
	}
	if responseDirectives(resp.Header).has("no-store") {
		return
	}
	t.tier.Store(ctx, cacheKey, entry)
}

// forward executes the request against the wrapped transport, optionally
// governed by resilience policies (retry, circuit-breaker). Resilience
// wraps only this network step — the cache lookup/store path is never
// subject to retry or tripping.
func (t *Transport) forward(req *http.Request) (*http.Response, error) {
	if len(t.resilience) == 0 {
		return t.transport.RoundTrip(req)
	}
	return failsafe.With(t.resilience...).Get(func() (*http.Response, error) {
		return t.transport.RoundTrip(req)
	})
}

func (t *Transport) key(req *http.Request) string {
	return keyWithHeaders(req, t.cacheKeyHeaders)
}

// cacheableRequest reports whether req is eligible for the cache pipeline
// at all: only GET and HEAD are considered, and a Range request bypasses
// the cache entirely since this implementation stores whole bodies only.
func cacheableRequest(req *http.Request) bool {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}
	if req.Header.Get("Range") != "" {
		return false
	}
	return true
}

// mutatingMethod reports whether method is never itself cacheable but may
// still invalidate an existing GET cache entry for the same URL (e.g. POST,
// PUT, DELETE, PATCH) — unlike a GET/HEAD request bypassed only because it
// carries a Range header, which leaves any cached entry untouched.
func mutatingMethod(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}
