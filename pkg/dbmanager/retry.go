package dbmanager

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/bitechdev/DataProvider/pkg/logger"
)

// calculateBackoff returns initial*2^attempt capped at maxDelay
func calculateBackoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	delay := time.Duration(float64(initial) * math.Pow(2, float64(attempt)))
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return delay
}

// openWithRetry opens and pings the pool, retrying with exponential backoff
func (c *Connection) openWithRetry(ctx context.Context) (*sql.DB, error) {
	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt-1, c.config.RetryDelay, c.config.RetryMaxDelay)
			if c.config.EnableLogging {
				logger.Info("Retrying SQL Server connection: name=%s, attempt=%d/%d, delay=%v", c.name, attempt+1, attempts, delay)
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		db, err := c.opener(DriverName, c.config.DSN())
		if err != nil {
			lastErr = err
			if c.config.EnableLogging {
				logger.Warn("Failed to open SQL Server connection %s: %v", c.name, err)
			}
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			lastErr = err
			_ = db.Close()
			if c.config.EnableLogging {
				logger.Warn("Failed to ping SQL Server %s: %v", c.name, err)
			}
			continue
		}

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, lastErr)
}
