package middleware

import (
	"net/http"
	"strconv"
)

const (
	// DefaultMaxRequestSize is the default maximum request body size (10MB)
	DefaultMaxRequestSize = 10 * 1024 * 1024

	// MaxRequestSizeHeader advertises the limit on every response
	MaxRequestSizeHeader = "X-Max-Request-Size"
)

// RequestSizeLimiter limits the size of request bodies, mainly batch saves
type RequestSizeLimiter struct {
	maxSize int64
}

// NewRequestSizeLimiter limits bodies to maxSize bytes; 0 uses DefaultMaxRequestSize
func NewRequestSizeLimiter(maxSize int64) *RequestSizeLimiter {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}
	return &RequestSizeLimiter{maxSize: maxSize}
}

// MaxSize returns the limit in bytes
func (rsl *RequestSizeLimiter) MaxSize() int64 {
	return rsl.maxSize
}

// Middleware wraps the body in http.MaxBytesReader. Reading past the limit
// fails with *http.MaxBytesError, which handlers map to 413.
func (rsl *RequestSizeLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > rsl.maxSize {
			writeFailure(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, rsl.maxSize)
		w.Header().Set(MaxRequestSizeHeader, strconv.FormatInt(rsl.maxSize, 10))
		next.ServeHTTP(w, r)
	})
}
