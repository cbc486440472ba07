package compresscache

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/cachetier/httpcache"
)

// NewGzip wraps inner with gzip compression at the given level (use
// gzip.DefaultCompression for a sensible default).
func NewGzip(inner httpcache.Backend, level int) (*Cache, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("compresscache: invalid gzip compression level: %d", level)
	}

	return newCache(inner, Gzip, codec{
		compress: func(data []byte) ([]byte, error) {
			var buf bytes.Buffer
			w, err := gzip.NewWriterLevel(&buf, level)
			if err != nil {
				return nil, fmt.Errorf("gzip writer: %w", err)
			}
			if _, err := w.Write(data); err != nil {
				_ = w.Close()
				return nil, fmt.Errorf("gzip write: %w", err)
			}
			if err := w.Close(); err != nil {
				return nil, fmt.Errorf("gzip close: %w", err)
			}
			return buf.Bytes(), nil
		},
		decompress: func(data []byte) ([]byte, error) {
			r, err := gzip.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("gzip reader: %w", err)
			}
			defer r.Close() //nolint:errcheck // read error surfaces from ReadAll
			return io.ReadAll(r)
		},
	})
}
