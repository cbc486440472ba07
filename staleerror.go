package httpcache

import "time"

// staleIfErrorEligible reports whether a cached response may be returned in
// place of an upstream 5xx/transport failure. Eligibility is governed
// solely by the response's own Cache-Control: stale-if-error=S directive
// (RFC 5861), never the request's. An absent or malformed directive is not
// eligible.
func staleIfErrorEligible(cached *CacheEntry, now time.Time) bool {
	dr := parseDirectives(cached.Headers.Get("Cache-Control"))

	seconds, ok := dr.seconds("stale-if-error")
	if !ok {
		return false
	}

	age := now.Sub(cached.Timestamp)
	return age <= time.Duration(seconds)*time.Second
}
