package dbmanager

import (
	"context"
	"sync"
	"time"

	"github.com/bitechdev/DataProvider/pkg/logger"
)

// Monitor periodically health checks a connection, publishes its pool
// metrics and reconnects it when auto-reconnect is enabled.
type Monitor struct {
	conn     *Connection
	metrics  *PoolMetrics
	interval time.Duration

	ticker   *time.Ticker
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewMonitor creates a monitor using the connection's HealthCheckInterval.
// metrics may be nil.
func NewMonitor(conn *Connection, metrics *PoolMetrics) *Monitor {
	return &Monitor{
		conn:     conn,
		metrics:  metrics,
		interval: conn.config.HealthCheckInterval,
	}
}

// Start launches the background loop; calling it twice is a no-op
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker != nil || m.interval <= 0 {
		return
	}

	m.ticker = time.NewTicker(m.interval)
	m.stopChan = make(chan struct{})
	ticker, stop := m.ticker, m.stopChan

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		logger.Info("Health checker started: connection=%s, interval=%v", m.conn.name, m.interval)

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				m.Check(ctx)
				cancel()
			case <-stop:
				logger.Info("Health checker stopped: connection=%s", m.conn.name)
				return
			}
		}
	}()
}

// Stop ends the background loop and waits for it
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stopChan)
	m.wg.Wait()
	m.ticker = nil
}

// Check runs one health check, reconnecting on failure when enabled
func (m *Monitor) Check(ctx context.Context) error {
	err := m.conn.HealthCheck(ctx)
	if err != nil {
		logger.Warn("Health check failed: connection=%s, error=%v", m.conn.name, err)

		if m.conn.config.EnableAutoReconnect {
			logger.Info("Attempting reconnection: connection=%s", m.conn.name)
			rerr := m.conn.Reconnect(ctx)
			m.metrics.RecordReconnectAttempt(m.conn.name, rerr == nil)
			if rerr != nil {
				logger.Error("Reconnection failed: connection=%s, error=%v", m.conn.name, rerr)
			} else {
				logger.Info("Reconnection successful: connection=%s", m.conn.name)
				err = m.conn.HealthCheck(ctx)
			}
		}
	}

	m.metrics.Publish(m.conn.Stats())
	return err
}
