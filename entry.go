package httpcache

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// entryWireVersion is carried on the wire to permit future evolution of the
// CacheEntry layout without breaking old records already in a backend.
const entryWireVersion = 1

// CacheEntry is the storable record for a cached HTTP response. Headers are
// flattened to a single value per name (multi-valued headers are joined by
// the transport before storage); Body is preserved as an opaque,
// binary-safe byte sequence.
type CacheEntry struct {
	StatusCode int
	Reason     string
	URL        string
	Headers    http.Header
	Body       []byte
	Encoding   string
	Timestamp  time.Time
}

// wireEntry is the JSON-serializable shape of CacheEntry. The body is
// base64-encoded so that compressed or binary payloads survive a text-only
// storage medium byte-for-byte.
type wireEntry struct {
	Version    int               `json:"version"`
	StatusCode int               `json:"status_code"`
	Reason     string            `json:"reason,omitempty"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Encoding   string            `json:"encoding,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

// newEntryFromResponse builds a CacheEntry from an *http.Response, reading
// and buffering its body. The returned response's body is left readable
// again via a fresh io.NopCloser so the caller can still forward it.
func newEntryFromResponse(resp *http.Response, now time.Time) (*CacheEntry, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpcache: reading response body: %w", err)
	}
	resp.Body.Close() //nolint:errcheck // best effort close of the drained body
	resp.Body = io.NopCloser(bytes.NewReader(body))

	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}

	return &CacheEntry{
		StatusCode: resp.StatusCode,
		Reason:     resp.Status,
		URL:        url,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
		Encoding:   resp.Header.Get("Content-Type"),
		Timestamp:  now,
	}, nil
}

// response reconstructs an *http.Response from the entry, indistinguishable
// from the origin response to downstream consumers modulo the X-Cache
// annotation the integration layer adds separately.
func (e *CacheEntry) response(req *http.Request) *http.Response {
	header := e.Headers.Clone()
	body := make([]byte, len(e.Body))
	copy(body, e.Body)

	return &http.Response{
		Status:        e.Reason,
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// Encode serializes the entry to its JSON wire form with a base64 body, for
// backends that store opaque bytes (disk, Redis, memcached, ...).
func (e *CacheEntry) Encode() ([]byte, error) {
	headers := make(map[string]string, len(e.Headers))
	for name := range e.Headers {
		headers[http.CanonicalHeaderKey(name)] = e.Headers.Get(name)
	}

	w := wireEntry{
		Version:    entryWireVersion,
		StatusCode: e.StatusCode,
		Reason:     e.Reason,
		URL:        e.URL,
		Headers:    headers,
		Body:       base64.StdEncoding.EncodeToString(e.Body),
		Encoding:   e.Encoding,
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("httpcache: encoding cache entry: %w", err)
	}
	return data, nil
}

// DecodeEntry deserializes a CacheEntry from its JSON wire form. A
// malformed record is a decode error, which callers treat as absence, and
// callers should opportunistically invalidate the offending key.
func DecodeEntry(data []byte) (*CacheEntry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("httpcache: decoding cache entry: %w", err)
	}

	body, err := base64.StdEncoding.DecodeString(w.Body)
	if err != nil {
		return nil, fmt.Errorf("httpcache: decoding cache entry body: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		ts, err = time.Parse(time.RFC3339, w.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("httpcache: decoding cache entry timestamp: %w", err)
		}
	}

	headers := make(http.Header, len(w.Headers))
	for name, value := range w.Headers {
		headers.Set(name, value)
	}

	return &CacheEntry{
		StatusCode: w.StatusCode,
		Reason:     w.Reason,
		URL:        w.URL,
		Headers:    headers,
		Body:       body,
		Encoding:   w.Encoding,
		Timestamp:  ts,
	}, nil
}

// flattenHeaders copies h into a single-valued header map, joining any
// multi-valued header with ", " per the transport's own convention, since a
// CacheEntry stores at most one string value per header name.
func flattenHeaders(h http.Header) http.Header {
	flat := make(http.Header, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		joined := values[0]
		for _, v := range values[1:] {
			joined += ", " + v
		}
		flat.Set(name, joined)
	}
	return flat
}
