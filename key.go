package httpcache

import (
	"crypto/md5" //nolint:gosec // fingerprint only, not a security boundary
	"encoding/hex"
	"net/http"
	"sort"
)

// key returns the request fingerprint for req: the lowercase hex MD5 digest
// of "METHOD:URL". The key is opaque to backends; collisions are not
// defended against beyond MD5's distribution.
func key(req *http.Request) string {
	return fingerprint(req.Method, req.URL.String())
}

// keyWithHeaders returns the fingerprint for req, additionally mixing in the
// values of headers named in extra (case-insensitive, sorted for stability).
// This lets callers separate cache entries by request header values (e.g.
// Authorization, Accept-Language) without implementing full Vary matching.
func keyWithHeaders(req *http.Request, extra []string) string {
	if len(extra) == 0 {
		return key(req)
	}

	raw := req.Method + ":" + req.URL.String()
	parts := make([]string, 0, len(extra))
	for _, h := range extra {
		canonical := http.CanonicalHeaderKey(h)
		if v := req.Header.Get(canonical); v != "" {
			parts = append(parts, canonical+"="+v)
		}
	}
	sort.Strings(parts)
	for _, p := range parts {
		raw += "|" + p
	}
	return fingerprint(raw, "")
}

func fingerprint(method, url string) string {
	sum := md5.Sum([]byte(method + ":" + url)) //nolint:gosec // fingerprint only
	return hex.EncodeToString(sum[:])
}
