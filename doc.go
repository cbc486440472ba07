// Package httpcache provides an RFC 7234-style client-side HTTP caching
// layer that sits in front of an existing HTTP client. It consults a chain
// of cache storage tiers for a previously stored response, applies
// freshness and revalidation rules, and either serves the cached response,
// issues a conditional revalidation, or performs a full network fetch and
// populates the caches.
//
// The middleware is a decorator over a transport capability rather than a
// subclass of any concrete HTTP client: Transport wraps anything satisfying
// http.RoundTripper, so any mock transport can stand in during tests.
package httpcache
