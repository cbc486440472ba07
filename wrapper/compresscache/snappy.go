package compresscache

import (
	"github.com/cachetier/httpcache"
	"github.com/golang/snappy"
)

// NewSnappy wraps inner with Snappy compression, the fastest of the
// supported codecs at the cost of compression ratio.
func NewSnappy(inner httpcache.Backend) (*Cache, error) {
	return newCache(inner, Snappy, codec{
		compress: func(data []byte) ([]byte, error) {
			return snappy.Encode(nil, data), nil
		},
		decompress: func(data []byte) ([]byte, error) {
			return snappy.Decode(nil, data)
		},
	})
}
