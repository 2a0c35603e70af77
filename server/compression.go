package server

import (
	"compress/gzip"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/sambeau/plainbind/config"
)

// compressibleTypes are the text responses the server produces: bound
// pages, JSON data and logs, and text assets. Images and fonts are already
// compressed.
var compressibleTypes = []string{
	"text/html",
	"text/plain",
	"text/css",
	"text/javascript",
	"application/javascript",
	"application/json",
	"image/svg+xml",
}

var compressionLevels = map[string]int{
	"fastest": gzip.BestSpeed,
	"default": gzip.DefaultCompression,
	"best":    gzip.BestCompression,
}

// newCompressionHandler gzips text responses of at least cfg.MinSize bytes.
// h is returned as-is when compression is off.
func newCompressionHandler(h http.Handler, cfg config.CompressionConfig) (http.Handler, error) {
	if !cfg.Enabled || cfg.Level == "none" {
		return h, nil
	}
	level, ok := compressionLevels[cfg.Level]
	if !ok {
		level = gzip.DefaultCompression
	}

	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(cfg.MinSize),
		gzhttp.CompressionLevel(level),
		gzhttp.ContentTypes(compressibleTypes),
	)
	if err != nil {
		return nil, err
	}
	return wrap(h), nil
}
