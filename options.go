package httpcache

import (
	"net/http"

	"github.com/failsafe-go/failsafe-go"
)

// TransportOption configures a Transport. Use the With* functions to build
// one.
type TransportOption func(*Transport)

// WithTransport sets the underlying http.RoundTripper used to perform
// network fetches. If unset, http.DefaultTransport is used.
func WithTransport(rt http.RoundTripper) TransportOption {
	return func(t *Transport) { t.transport = rt }
}

// WithCacheableStatusCodes sets the set of response status codes eligible
// for storage. Defaults to {200}; this is the mechanism for also caching
// e.g. 404/301 responses.
func WithCacheableStatusCodes(codes ...int) TransportOption {
	return func(t *Transport) {
		set := make(map[int]bool, len(codes))
		for _, c := range codes {
			set[c] = true
		}
		t.cacheableStatusCodes = set
	}
}

// WithCacheKeyHeaders includes the named request headers' values in the
// cache key fingerprint, in addition to method+URL.
func WithCacheKeyHeaders(headers []string) TransportOption {
	return func(t *Transport) { t.cacheKeyHeaders = headers }
}

// WithResilience wraps the network-forward step (never the cache path)
// with the given failsafe-go policies, e.g. retry and circuit-breaker.
func WithResilience(policies ...failsafe.Policy[*http.Response]) TransportOption {
	return func(t *Transport) { t.resilience = policies }
}
