package dbmanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mssqldialect"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/bitechdev/DataProvider/pkg/config"
	"github.com/bitechdev/DataProvider/pkg/logger"
)

// DriverName is the database/sql driver registered by go-mssqldb
const DriverName = "sqlserver"

// Opener opens a database handle; sql.Open by default
type Opener func(driverName, dsn string) (*sql.DB, error)

// ConnectionStats contains statistics about a database connection
type ConnectionStats struct {
	Name              string
	Connected         bool
	LastHealthCheck   time.Time
	HealthCheckStatus string

	// SQL connection pool stats
	OpenConnections   int
	InUse             int
	Idle              int
	WaitCount         int64
	WaitDuration      time.Duration
	MaxIdleClosed     int64
	MaxLifetimeClosed int64
}

// Healthy reports whether the last health check passed
func (s *ConnectionStats) Healthy() bool {
	return s.Connected && s.HealthCheckStatus == "healthy"
}

// Connection is a named SQL Server connection pool. Bun and GORM handles
// are created lazily and share the same *sql.DB.
type Connection struct {
	name   string
	config config.DatabaseConfig
	opener Opener

	nativeDB *sql.DB
	bunDB    *bun.DB
	gormDB   *gorm.DB

	connected bool
	mu        sync.RWMutex

	lastHealthCheck   time.Time
	healthCheckStatus string
}

// Option configures a Connection
type Option func(*Connection)

// WithOpener replaces sql.Open, mainly for tests
func WithOpener(opener Opener) Option {
	return func(c *Connection) {
		c.opener = opener
	}
}

// NewConnection validates cfg and returns an unconnected Connection
func NewConnection(name string, cfg config.DatabaseConfig, opts ...Option) (*Connection, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigurationError("database", fmt.Errorf("%w: %v", ErrInvalidConfiguration, err))
	}
	if name == "" {
		name = "default"
	}

	c := &Connection{
		name:   name,
		config: cfg,
		opener: sql.Open,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the connection name
func (c *Connection) Name() string {
	return c.name
}

// Config returns the configuration with defaults applied
func (c *Connection) Config() config.DatabaseConfig {
	return c.config
}

// Connect opens the pool and configures its limits
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return ErrAlreadyConnected
	}

	db, err := c.openWithRetry(ctx)
	if err != nil {
		return NewConnectionError(c.name, "connect", err)
	}

	db.SetMaxOpenConns(c.config.MaxOpenConns)
	db.SetMaxIdleConns(c.config.MaxIdleConns)
	db.SetConnMaxLifetime(c.config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(c.config.ConnMaxIdleTime)

	c.nativeDB = db
	c.connected = true

	if c.config.EnableLogging {
		logger.Info("SQL Server connection established: name=%s, host=%s, database=%s", c.name, c.config.Host, c.config.Database)
	}
	return nil
}

// Close closes the pool and drops the ORM handles
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	// bun.DB.Close closes the shared *sql.DB
	var err error
	if c.bunDB != nil {
		err = c.bunDB.Close()
	} else {
		err = c.nativeDB.Close()
	}
	if err != nil {
		return NewConnectionError(c.name, "close", err)
	}

	c.connected = false
	c.nativeDB = nil
	c.bunDB = nil
	c.gormDB = nil

	if c.config.EnableLogging {
		logger.Info("SQL Server connection closed: name=%s", c.name)
	}
	return nil
}

// HealthCheck pings the pool with a 5 second limit
func (c *Connection) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastHealthCheck = time.Now()

	if !c.connected {
		c.healthCheckStatus = "disconnected"
		return ErrConnectionClosed
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.nativeDB.PingContext(healthCtx); err != nil {
		c.healthCheckStatus = "unhealthy: " + err.Error()
		return NewConnectionError(c.name, "health check", err)
	}

	c.healthCheckStatus = "healthy"
	return nil
}

// Reconnect closes and re-establishes the connection
func (c *Connection) Reconnect(ctx context.Context) error {
	if err := c.Close(); err != nil {
		return err
	}
	return c.Connect(ctx)
}

// Native returns the underlying *sql.DB
func (c *Connection) Native() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return nil, ErrConnectionClosed
	}
	return c.nativeDB, nil
}

// Bun returns a Bun handle using the SQL Server dialect
func (c *Connection) Bun() (*bun.DB, error) {
	c.mu.RLock()
	if c.bunDB != nil {
		defer c.mu.RUnlock()
		return c.bunDB, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.bunDB != nil {
		return c.bunDB, nil
	}
	if !c.connected {
		return nil, ErrConnectionClosed
	}

	c.bunDB = bun.NewDB(c.nativeDB, mssqldialect.New())
	return c.bunDB, nil
}

// GORM returns a GORM handle using the sqlserver dialector
func (c *Connection) GORM() (*gorm.DB, error) {
	c.mu.RLock()
	if c.gormDB != nil {
		defer c.mu.RUnlock()
		return c.gormDB, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gormDB != nil {
		return c.gormDB, nil
	}
	if !c.connected {
		return nil, ErrConnectionClosed
	}

	db, err := gorm.Open(sqlserver.New(sqlserver.Config{Conn: c.nativeDB}), &gorm.Config{})
	if err != nil {
		return nil, NewConnectionError(c.name, "initialize gorm", err)
	}

	c.gormDB = db
	return c.gormDB, nil
}

// Ready runs a trivial select through the Bun handle. It backs the readiness
// probe, so a pool that pings but cannot run statements is reported.
func (c *Connection) Ready(ctx context.Context) error {
	db, err := c.Bun()
	if err != nil {
		return err
	}
	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var one int
	if err := db.NewSelect().ColumnExpr("1").Scan(readyCtx, &one); err != nil {
		return NewConnectionError(c.name, "ready", err)
	}
	return nil
}

// ServerVersion returns @@VERSION through the GORM handle
func (c *Connection) ServerVersion(ctx context.Context) (string, error) {
	db, err := c.GORM()
	if err != nil {
		return "", err
	}
	var version string
	if err := db.WithContext(ctx).Raw("Select @@VERSION").Scan(&version).Error; err != nil {
		return "", NewConnectionError(c.name, "server version", err)
	}
	return version, nil
}

// Stats returns connection statistics
func (c *Connection) Stats() *ConnectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &ConnectionStats{
		Name:              c.name,
		Connected:         c.connected,
		LastHealthCheck:   c.lastHealthCheck,
		HealthCheckStatus: c.healthCheckStatus,
	}

	if c.connected {
		s := c.nativeDB.Stats()
		stats.OpenConnections = s.OpenConnections
		stats.InUse = s.InUse
		stats.Idle = s.Idle
		stats.WaitCount = s.WaitCount
		stats.WaitDuration = s.WaitDuration
		stats.MaxIdleClosed = s.MaxIdleClosed
		stats.MaxLifetimeClosed = s.MaxLifetimeClosed
	}

	return stats
}
