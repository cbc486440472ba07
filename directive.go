package httpcache

import (
	"net/http"
	"strconv"
	"strings"
)

// present is the sentinel value used for directives that carry no value
// (e.g. "no-cache", "must-revalidate").
const present = ""

// directives is a map of lowercased Cache-Control directive tokens to their
// (possibly empty) values. Unknown tokens are retained verbatim; values are
// stored as seen, with no unquoting.
type directives map[string]string

// has reports whether d contains the named token, with or without a value.
func (d directives) has(name string) bool {
	_, ok := d[name]
	return ok
}

// value returns the raw string value for name and whether it was present.
func (d directives) value(name string) (string, bool) {
	v, ok := d[name]
	return v, ok
}

// seconds parses the directive's value as a non-negative integer number of
// seconds. A missing directive, an empty value, or a non-integer value all
// report ok=false; the caller decides how to collapse that into "not fresh"
// without aborting the overall freshness decision — numeric coercion
// failures never abort.
func (d directives) seconds(name string) (int64, bool) {
	v, ok := d[name]
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseDirectives tokenizes a Cache-Control header value into a directive
// map. Parts are split on ",", trimmed, and split again on the first "="
// into (key, value); parts without "=" are stored as present-without-value.
// Keys are lowercased; values are kept verbatim. An empty header yields an
// empty map.
func parseDirectives(headerValue string) directives {
	d := directives{}
	if headerValue == "" {
		return d
	}

	for _, part := range strings.Split(headerValue, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if idx := strings.IndexByte(part, '='); idx >= 0 {
			token := strings.ToLower(strings.TrimSpace(part[:idx]))
			val := strings.TrimSpace(part[idx+1:])
			if token != "" {
				d[token] = val
			}
			continue
		}

		token := strings.ToLower(part)
		d[token] = present
	}

	return d
}

// requestDirectives parses the Cache-Control header of an *http.Request.
func requestDirectives(h http.Header) directives {
	return parseDirectives(h.Get("Cache-Control"))
}

// responseDirectives parses the Cache-Control header of an *http.Response.
func responseDirectives(h http.Header) directives {
	return parseDirectives(h.Get("Cache-Control"))
}
