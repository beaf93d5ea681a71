package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusProvider implements the Provider interface using Prometheus
type PrometheusProvider struct {
	gatherer prometheus.Gatherer

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
	dbQueryDuration  *prometheus.HistogramVec
	dbQueryTotal     *prometheus.CounterVec
	transactions     *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	cacheSize        *prometheus.GaugeVec
	eventsPublished  *prometheus.CounterVec
	panics           *prometheus.CounterVec
}

// NewPrometheusProvider creates a new Prometheus metrics provider. A nil
// config uses DefaultConfig and a private registry.
func NewPrometheusProvider(cfg *Config) *PrometheusProvider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()

	reg := cfg.Registerer
	gatherer := cfg.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg = r
		if gatherer == nil {
			gatherer = r
		}
	}
	if gatherer == nil {
		if g, ok := reg.(prometheus.Gatherer); ok {
			gatherer = g
		} else {
			gatherer = prometheus.DefaultGatherer
		}
	}

	factory := promauto.With(reg)
	ns := cfg.Namespace

	return &PrometheusProvider{
		gatherer: gatherer,
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   cfg.HTTPRequestBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "db_query_duration_seconds",
				Help:      "Database command duration in seconds",
				Buckets:   cfg.DBQueryBuckets,
			},
			[]string{"operation", "table"},
		),
		dbQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "db_queries_total",
				Help:      "Total number of database commands",
			},
			[]string{"operation", "table", "status"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "db_transactions_total",
				Help:      "Total number of finished transactions by outcome",
			},
			[]string{"table", "outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"provider"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"provider"},
		),
		cacheSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "cache_size_items",
				Help:      "Number of items in cache",
			},
			[]string{"provider"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "events_published_total",
				Help:      "Total number of change events handed to a publisher",
			},
			[]string{"provider", "type", "status"},
		),
		panics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "panics_total",
				Help:      "Total number of recovered panics",
			},
			[]string{"method"},
		),
	}
}

// ResponseWriter wraps http.ResponseWriter to capture status code
type ResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// StatusCode returns the status written so far
func (rw *ResponseWriter) StatusCode() int {
	return rw.statusCode
}

// RecordHTTPRequest implements Provider interface
func (p *PrometheusProvider) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	p.requestTotal.WithLabelValues(method, path, status).Inc()
}

// IncRequestsInFlight implements Provider interface
func (p *PrometheusProvider) IncRequestsInFlight() {
	p.requestsInFlight.Inc()
}

// DecRequestsInFlight implements Provider interface
func (p *PrometheusProvider) DecRequestsInFlight() {
	p.requestsInFlight.Dec()
}

// RecordDBQuery implements Provider interface
func (p *PrometheusProvider) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	p.dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	p.dbQueryTotal.WithLabelValues(operation, table, status(err)).Inc()
}

// RecordTransaction implements Provider interface
func (p *PrometheusProvider) RecordTransaction(table, outcome string) {
	p.transactions.WithLabelValues(table, outcome).Inc()
}

// RecordCacheHit implements Provider interface
func (p *PrometheusProvider) RecordCacheHit(provider string) {
	p.cacheHits.WithLabelValues(provider).Inc()
}

// RecordCacheMiss implements Provider interface
func (p *PrometheusProvider) RecordCacheMiss(provider string) {
	p.cacheMisses.WithLabelValues(provider).Inc()
}

// UpdateCacheSize implements Provider interface
func (p *PrometheusProvider) UpdateCacheSize(provider string, size int64) {
	p.cacheSize.WithLabelValues(provider).Set(float64(size))
}

// RecordEventPublished implements Provider interface
func (p *PrometheusProvider) RecordEventPublished(provider, eventType string, err error) {
	p.eventsPublished.WithLabelValues(provider, eventType, status(err)).Inc()
}

// RecordPanic implements Provider interface
func (p *PrometheusProvider) RecordPanic(methodName string) {
	p.panics.WithLabelValues(methodName).Inc()
}

// Handler implements Provider interface
func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Middleware returns an HTTP middleware that collects metrics. pathOf maps a
// request to its route template so labels stay bounded; nil uses URL.Path.
func (p *PrometheusProvider) Middleware(pathOf func(*http.Request) string) func(http.Handler) http.Handler {
	if pathOf == nil {
		pathOf = func(r *http.Request) string { return r.URL.Path }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			p.IncRequestsInFlight()
			defer p.DecRequestsInFlight()

			rw := NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			p.RecordHTTPRequest(r.Method, pathOf(r), strconv.Itoa(rw.statusCode), time.Since(start))
		})
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
