package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/bitechdev/DataProvider/pkg/logger"
)

// Provider defines the interface for metric collection
type Provider interface {
	// RecordHTTPRequest records metrics for an HTTP request
	RecordHTTPRequest(method, path, status string, duration time.Duration)

	// IncRequestsInFlight increments the in-flight requests counter
	IncRequestsInFlight()

	// DecRequestsInFlight decrements the in-flight requests counter
	DecRequestsInFlight()

	// RecordDBQuery records metrics for a database command
	RecordDBQuery(operation, table string, duration time.Duration, err error)

	// RecordTransaction records the outcome (commit, rollback) of a transaction
	RecordTransaction(table, outcome string)

	// RecordCacheHit records a cache hit
	RecordCacheHit(provider string)

	// RecordCacheMiss records a cache miss
	RecordCacheMiss(provider string)

	// UpdateCacheSize updates the cache size metric
	UpdateCacheSize(provider string, size int64)

	// RecordEventPublished records a change event handed to a publisher
	RecordEventPublished(provider, eventType string, err error)

	// RecordPanic records a recovered panic
	RecordPanic(methodName string)

	// Handler returns an HTTP handler for exposing metrics (e.g., /metrics endpoint)
	Handler() http.Handler
}

var (
	globalProvider Provider
	globalMu       sync.RWMutex
)

// SetProvider sets the global metrics provider
func SetProvider(p Provider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
}

// GetProvider returns the current metrics provider
func GetProvider() Provider {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalProvider == nil {
		return &NoOpProvider{}
	}
	return globalProvider
}

// NoOpProvider is a no-op implementation of Provider
type NoOpProvider struct{}

func (n *NoOpProvider) RecordHTTPRequest(method, path, status string, duration time.Duration) {}
func (n *NoOpProvider) IncRequestsInFlight()                                                  {}
func (n *NoOpProvider) DecRequestsInFlight()                                                  {}
func (n *NoOpProvider) RecordDBQuery(operation, table string, duration time.Duration, err error) {
}
func (n *NoOpProvider) RecordTransaction(table, outcome string)                    {}
func (n *NoOpProvider) RecordCacheHit(provider string)                             {}
func (n *NoOpProvider) RecordCacheMiss(provider string)                            {}
func (n *NoOpProvider) UpdateCacheSize(provider string, size int64)                {}
func (n *NoOpProvider) RecordEventPublished(provider, eventType string, err error) {}
func (n *NoOpProvider) RecordPanic(methodName string)                              {}
func (n *NoOpProvider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Metrics provider not configured"))
		if err != nil {
			logger.Warn("Failed to write. %v", err)
		}
	})
}
