package httpcache

import "net/http"

// staleWarning is the RFC 7234 §5.5 Warning header value the integration
// layer attaches when a stale-if-error path serves a cached response.
const staleWarning = `110 - "Response is stale"`

func addStaleWarning(resp *http.Response) {
	resp.Header.Set("Stale-Warning", staleWarning)
}
