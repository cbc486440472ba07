package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cachetier/httpcache"
	"github.com/cachetier/httpcache/wrapper/metrics"
)

// InstrumentedTransport wraps an *httpcache.Transport with metrics
// recording for every request it serves.
type InstrumentedTransport struct {
	inner     *httpcache.Transport
	collector metrics.Collector
}

// NewInstrumentedTransport wraps transport so every RoundTrip is recorded
// against collector. A nil collector uses metrics.DefaultCollector.
func NewInstrumentedTransport(transport *httpcache.Transport, collector metrics.Collector) *InstrumentedTransport {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedTransport{inner: transport, collector: collector}
}

func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.inner.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		return resp, err
	}

	cacheStatus := "bypass"
	switch resp.Header.Get(httpcache.CacheStatusHeader) {
	case httpcache.CacheStatusHit:
		cacheStatus = "hit"
		if resp.Header.Get("Stale-Warning") != "" {
			cacheStatus = "stale"
			t.collector.RecordStaleResponse("upstream_error")
		}
	case httpcache.CacheStatusMiss:
		cacheStatus = "miss"
	}

	t.collector.RecordHTTPRequest(req.Method, cacheStatus, resp.StatusCode, duration)

	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
			t.collector.RecordHTTPResponseSize(cacheStatus, size)
		}
	}

	return resp, nil
}

// Client returns an *http.Client that uses t as its transport.
func (t *InstrumentedTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}

var _ http.RoundTripper = (*InstrumentedTransport)(nil)
