package compresscache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/cachetier/httpcache"
)

// NewBrotli wraps inner with Brotli compression at the given level (0-11;
// pass 0 for the default of 6).
func NewBrotli(inner httpcache.Backend, level int) (*Cache, error) {
	if level == 0 {
		level = 6
	}
	if level < 0 || level > 11 {
		return nil, fmt.Errorf("compresscache: invalid brotli compression level: %d", level)
	}

	return newCache(inner, Brotli, codec{
		compress: func(data []byte) ([]byte, error) {
			var buf bytes.Buffer
			w := brotli.NewWriterLevel(&buf, level)
			if _, err := w.Write(data); err != nil {
				_ = w.Close()
				return nil, fmt.Errorf("brotli write: %w", err)
			}
			if err := w.Close(); err != nil {
				return nil, fmt.Errorf("brotli close: %w", err)
			}
			return buf.Bytes(), nil
		},
		decompress: func(data []byte) ([]byte, error) {
			r := brotli.NewReader(bytes.NewReader(data))
			return io.ReadAll(r)
		},
	})
}
