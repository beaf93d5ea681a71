package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/metrics"
)

type mockMetricsProvider struct {
	metrics.NoOpProvider
	panicRecorded bool
	methodName    string
}

func (m *mockMetricsProvider) RecordPanic(methodName string) {
	m.panicRecorded = true
	m.methodName = methodName
}

func TestPanicRecovery(t *testing.T) {
	logger.Init(true)

	mockProvider := &mockMetricsProvider{}
	originalProvider := metrics.GetProvider()
	metrics.SetProvider(mockProvider)
	defer metrics.SetProvider(originalProvider)

	t.Run("recovers from panic and returns 500", func(t *testing.T) {
		mockProvider.panicRecorded = false
		mockProvider.methodName = ""

		handler := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("something went terribly wrong")
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "http://example.com/customers/1", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var body common.Response[any]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.False(t, body.Correct)
		assert.Equal(t, "panic in PanicMiddleware: something went terribly wrong", body.Message)

		assert.True(t, mockProvider.panicRecorded)
		assert.Equal(t, panicMiddlewareMethodName, mockProvider.methodName)
	})

	t.Run("does not interfere with a non-panicking handler", func(t *testing.T) {
		mockProvider.panicRecorded = false

		handler := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "http://example.com/customers", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "OK", rr.Body.String())
		assert.False(t, mockProvider.panicRecorded)
	})
}
