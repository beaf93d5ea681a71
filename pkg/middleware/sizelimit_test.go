package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func readingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestSizeLimiter(t *testing.T) {
	handler := NewRequestSizeLimiter(1024).Middleware(readingHandler())

	t.Run("small body", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/customers", bytes.NewReader(make([]byte, 512))))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1024", w.Header().Get(MaxRequestSizeHeader))
	})

	t.Run("declared length over the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/customers", bytes.NewReader(make([]byte, 2048))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), `"correct":false`)
	})

	t.Run("streamed body over the limit", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/customers", io.NopCloser(bytes.NewReader(make([]byte, 2048))))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestRequestSizeLimiterDefault(t *testing.T) {
	assert.Equal(t, int64(DefaultMaxRequestSize), NewRequestSizeLimiter(0).MaxSize())
	assert.Equal(t, int64(DefaultMaxRequestSize), NewRequestSizeLimiter(-5).MaxSize())
}
