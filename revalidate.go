package httpcache

import "net/http"

// addValidators builds conditional request headers for an outgoing
// revalidation fetch from a cached response's validators. If the cached
// response carries an ETag, If-None-Match is set; if it carries
// Last-Modified, If-Modified-Since is set. Both may be set together.
// Existing values on req are overwritten: revalidation is always armed from
// the cached response's own validators, never the incoming request's.
func addValidators(req *http.Request, cached *CacheEntry) {
	if etag := cached.Headers.Get("ETag"); etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified := cached.Headers.Get("Last-Modified"); lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
}
