// compression.go - HTTP compression middleware.
//
// Compresses JSON and other text responses with gzip when the client
// accepts it.
package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"image-gallery/internal/live"
)

// compressionResponseWriter wraps http.ResponseWriter to compress responses.
type compressionResponseWriter struct {
	http.ResponseWriter
	writer io.Writer
}

// Write compresses data before writing to the underlying writer.
func (crw *compressionResponseWriter) Write(b []byte) (int, error) {
	return crw.writer.Write(b)
}

func (crw *compressionResponseWriter) Unwrap() http.ResponseWriter {
	return crw.ResponseWriter
}

// CompressionMiddleware returns middleware that compresses HTTP responses.
func CompressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsCompression(r) || shouldSkipCompression(r) {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzip.NewWriter(w)
		defer gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length") // Length will change with compression

		next.ServeHTTP(&compressionResponseWriter{ResponseWriter: w, writer: gz}, r)
	})
}

// acceptsCompression checks if the client accepts gzip encoding.
func acceptsCompression(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// shouldSkipCompression determines if compression should be skipped for this request.
func shouldSkipCompression(r *http.Request) bool {
	// The upgraded connection is hijacked and must see the raw writer.
	if live.IsUpgrade(r) {
		return true
	}

	// Skip for uploads
	if strings.HasPrefix(r.URL.Path, "/upload") && r.Method == http.MethodPost {
		return true
	}

	return false
}
