package httpcache

import (
	"strconv"
	"time"
)

// currentAge computes the RFC 7234 §4.2.3-style Age of a cached entry: the
// elapsed time since it was stored. It never participates in the freshness
// decision, which is driven solely by the response's own Date header and
// the applicable Cache-Control directives; Age is set on cache hits and
// revalidated responses purely for diagnosing cache behavior.
func currentAge(e *CacheEntry, now time.Time) time.Duration {
	age := now.Sub(e.Timestamp)
	if age < 0 {
		return 0
	}
	return age
}

func formatAge(age time.Duration) string {
	return strconv.FormatInt(int64(age.Seconds()), 10)
}
