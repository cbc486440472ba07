package httpcache

import (
	"net/http"
	"time"
)

// Freshness classifies a cached response against a request.
type Freshness int

const (
	// Fresh indicates the cached response may be served without revalidation.
	Fresh Freshness = iota
	// Stale indicates the cached response needs revalidation (or a full
	// refetch) before it may be served.
	Stale
	// Transparent indicates the cache must be bypassed entirely for this
	// request (request-side no-cache).
	Transparent
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Transparent:
		return "transparent"
	default:
		return "unknown"
	}
}

// clock abstracts "now" so tests can control time deterministically.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

var defaultClock clock = realClock{}

// classify implements the freshness decision: given the
// request directives Dq, the response directives Dr, and the response
// headers (for Date/Expires), it returns Fresh, Stale, or Transparent.
//
// Numeric coercion failures (non-integer max-age etc.) collapse the local
// predicate to "not fresh" and never abort the decision. A missing Date
// header is substituted with "now" (age=0) rather than failing.
func classify(reqHeaders, respHeaders http.Header, now time.Time) Freshness {
	dq := requestDirectives(reqHeaders)
	dr := responseDirectives(respHeaders)

	// Step 1: request no-cache -> transparent.
	if dq.has("no-cache") {
		return Transparent
	}

	// Step 2: response no-cache -> stale (must revalidate).
	if dr.has("no-cache") {
		return Stale
	}

	// Step 3: only-if-cached -> fresh (this only classifies what IS cached;
	// when nothing was cached the integration layer forwards the request as
	// an ordinary miss).
	if dq.has("only-if-cached") {
		return Fresh
	}

	// Step 4: age = now - Date(resp); missing Date yields age=0.
	date, ok := responseDate(respHeaders)
	if !ok {
		date = now
	}
	age := now.Sub(date)

	// Step 5: baseline freshness from max-age or Expires.
	fresh, lifetime, hasLifetime := baselineFreshness(dr, respHeaders, date, age)

	// Step 6: max-stale relaxation, unless must-revalidate is present.
	if !fresh && !dr.has("must-revalidate") {
		if relaxed, ok := applyMaxStale(dq, hasLifetime, lifetime, age); ok {
			fresh = relaxed
		}
	}

	// Step 7: min-fresh tightening.
	if fresh {
		if tightened, ok := applyMinFresh(dq, dr, hasLifetime, lifetime, age); ok {
			fresh = tightened
		}
	}

	if fresh {
		return Fresh
	}
	return Stale
}

// baselineFreshness computes step 5: fresh iff age <= max-age, else iff
// now <= Expires, else not fresh. Returns the lifetime used (if any) so
// later steps can reuse it.
func baselineFreshness(dr directives, respHeaders http.Header, date time.Time, age time.Duration) (fresh bool, lifetime time.Duration, hasLifetime bool) {
	if maxAge, ok := dr.seconds("max-age"); ok {
		lifetime = time.Duration(maxAge) * time.Second
		return age <= lifetime, lifetime, true
	}

	if expiresHeader := respHeaders.Get("Expires"); expiresHeader != "" {
		if expires, err := http.ParseTime(expiresHeader); err == nil {
			lifetime = expires.Sub(date)
			return age <= lifetime, lifetime, true
		}
	}

	return false, 0, false
}

// applyMaxStale implements step 6. max-stale without a value relaxes
// unconditionally; max-stale=M relaxes iff age-lifetime <= M (only
// meaningful when a lifetime was established from max-age or Expires).
func applyMaxStale(dq directives, hasLifetime bool, lifetime, age time.Duration) (fresh bool, applied bool) {
	raw, ok := dq.value("max-stale")
	if !ok {
		return false, false
	}
	if raw == present {
		return true, true
	}
	if !hasLifetime {
		return false, true
	}
	m, ok := dq.seconds("max-stale")
	if !ok {
		return false, true
	}
	maxStale := time.Duration(m) * time.Second
	return age-lifetime <= maxStale, true
}

// applyMinFresh implements step 7: fresh iff N - age >= F, where N is the
// response's max-age and F is the request's min-fresh.
func applyMinFresh(dq, dr directives, hasLifetime bool, lifetime, age time.Duration) (fresh bool, applied bool) {
	f, ok := dq.seconds("min-fresh")
	if !ok {
		return false, false
	}
	if !hasLifetime || !dr.has("max-age") {
		return false, true
	}
	minFresh := time.Duration(f) * time.Second
	return lifetime-age >= minFresh, true
}

// responseDate returns the parsed Date header, if present and well-formed.
func responseDate(h http.Header) (time.Time, bool) {
	v := h.Get("Date")
	if v == "" {
		return time.Time{}, false
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
