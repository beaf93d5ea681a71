package dbmanager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PoolMetrics exposes connection pool gauges
type PoolMetrics struct {
	connectionStatus         *prometheus.GaugeVec
	connectionPoolSize       *prometheus.GaugeVec
	connectionWaitCount      *prometheus.GaugeVec
	connectionWaitDuration   *prometheus.GaugeVec
	connectionLifetimeClosed *prometheus.GaugeVec
	connectionIdleClosed     *prometheus.GaugeVec
	reconnectAttempts        *prometheus.CounterVec
}

// NewPoolMetrics registers the pool collectors on reg
func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	factory := promauto.With(reg)
	return &PoolMetrics{
		// connectionStatus tracks connection health status (1=healthy, 0=unhealthy)
		connectionStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmanager_connection_status",
				Help: "Connection status (1=healthy, 0=unhealthy)",
			},
			[]string{"name"},
		),
		connectionPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmanager_connection_pool_size",
				Help: "Current connection pool size",
			},
			[]string{"name", "state"}, // state: open, idle, in_use
		),
		connectionWaitCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmanager_connection_wait_count",
				Help: "Number of times connections had to wait for availability",
			},
			[]string{"name"},
		),
		connectionWaitDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmanager_connection_wait_duration_seconds",
				Help: "Total time connections spent waiting for availability",
			},
			[]string{"name"},
		),
		connectionLifetimeClosed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmanager_connection_lifetime_closed_total",
				Help: "Total connections closed due to exceeding max lifetime",
			},
			[]string{"name"},
		),
		connectionIdleClosed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmanager_connection_idle_closed_total",
				Help: "Total connections closed due to exceeding max idle time",
			},
			[]string{"name"},
		),
		reconnectAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbmanager_reconnect_attempts_total",
				Help: "Total number of reconnection attempts",
			},
			[]string{"name", "result"}, // result: success, failure
		),
	}
}

// Publish sets the gauges from a stats snapshot
func (m *PoolMetrics) Publish(stats *ConnectionStats) {
	if m == nil || stats == nil {
		return
	}
	name := stats.Name

	status := float64(0)
	if stats.Healthy() {
		status = 1
	}
	m.connectionStatus.WithLabelValues(name).Set(status)

	m.connectionPoolSize.WithLabelValues(name, "open").Set(float64(stats.OpenConnections))
	m.connectionPoolSize.WithLabelValues(name, "idle").Set(float64(stats.Idle))
	m.connectionPoolSize.WithLabelValues(name, "in_use").Set(float64(stats.InUse))

	m.connectionWaitCount.WithLabelValues(name).Set(float64(stats.WaitCount))
	m.connectionWaitDuration.WithLabelValues(name).Set(stats.WaitDuration.Seconds())

	m.connectionLifetimeClosed.WithLabelValues(name).Set(float64(stats.MaxLifetimeClosed))
	m.connectionIdleClosed.WithLabelValues(name).Set(float64(stats.MaxIdleClosed))
}

// RecordReconnectAttempt records a reconnection attempt
func (m *PoolMetrics) RecordReconnectAttempt(name string, success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.reconnectAttempts.WithLabelValues(name, result).Inc()
}
