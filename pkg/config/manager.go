package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Manager handles configuration loading from multiple sources
type Manager struct {
	v *viper.Viper
}

// NewManager creates a new configuration manager with defaults
func NewManager() *Manager {
	v := viper.New()

	v.SetConfigName("dataprovider")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dataprovider")
	v.AddConfigPath("$HOME/.dataprovider")

	v.SetEnvPrefix("DATAPROVIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &Manager{v: v}
}

// NewManagerWithOptions creates a new configuration manager with custom options
func NewManagerWithOptions(opts ...Option) *Manager {
	m := NewManager()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithConfigFile sets a specific config file path; the extension selects the format
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.v.SetConfigFile(path)
	}
}

// WithConfigName sets the config file name (without extension)
func WithConfigName(name string) Option {
	return func(m *Manager) {
		m.v.SetConfigName(name)
	}
}

// WithConfigPath adds a path to search for config files
func WithConfigPath(path string) Option {
	return func(m *Manager) {
		m.v.AddConfigPath(path)
	}
}

// WithEnvPrefix sets the environment variable prefix
func WithEnvPrefix(prefix string) Option {
	return func(m *Manager) {
		m.v.SetEnvPrefix(prefix)
	}
}

// Load attempts to load configuration from file and environment
func (m *Manager) Load() error {
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// no file: defaults and env vars only
	}
	return nil
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Database.ApplyDefaults()
	return &cfg, nil
}

// Get returns a configuration value by key
func (m *Manager) Get(key string) interface{} {
	return m.v.Get(key)
}

// GetString returns a string configuration value
func (m *Manager) GetString(key string) string {
	return m.v.GetString(key)
}

// GetInt returns an int configuration value
func (m *Manager) GetInt(key string) int {
	return m.v.GetInt(key)
}

// GetBool returns a bool configuration value
func (m *Manager) GetBool(key string) bool {
	return m.v.GetBool(key)
}

// Set sets a configuration value
func (m *Manager) Set(key string, value interface{}) {
	m.v.Set(key, value)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.drain_timeout", "25s")
	v.SetDefault("server.gzip", true)
	v.SetDefault("server.max_body_size", 10*1024*1024)
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.rate_limit_burst", 20)

	// Logger defaults
	v.SetDefault("logger.dev", false)
	v.SetDefault("logger.path", "")

	// Error tracking defaults
	v.SetDefault("error_tracking.enabled", false)
	v.SetDefault("error_tracking.provider", "noop")
	v.SetDefault("error_tracking.sample_rate", 1.0)
	v.SetDefault("error_tracking.traces_sample_rate", 0.0)
	v.SetDefault("error_tracking.buffer_size", 100)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "dataprovider")
	v.SetDefault("tracing.service_version", "1.0.0")
	v.SetDefault("tracing.endpoint", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.memcache.servers", []string{"localhost:11211"})
	v.SetDefault("cache.memcache.max_idle_conns", 10)
	v.SetDefault("cache.memcache.timeout", "100ms")

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.provider", "memory")
	v.SetDefault("events.source", "dataprovider")
	v.SetDefault("events.redis.stream_name", "dataprovider:events")
	v.SetDefault("events.redis.max_len", 10000)
	v.SetDefault("events.redis.host", "localhost")
	v.SetDefault("events.redis.port", 6379)
	v.SetDefault("events.redis.db", 0)
	v.SetDefault("events.nats.url", "nats://localhost:4222")
	v.SetDefault("events.nats.subject_prefix", "dataprovider")
	v.SetDefault("events.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("events.mqtt.client_id", "dataprovider")
	v.SetDefault("events.mqtt.topic_prefix", "dataprovider")
	v.SetDefault("events.mqtt.qos", 1)
	v.SetDefault("events.mqtt.timeout", "5s")

	// Database defaults
	d := DefaultDatabaseConfig()
	v.SetDefault("database.connection_string", "")
	v.SetDefault("database.host", d.Host)
	v.SetDefault("database.port", d.Port)
	v.SetDefault("database.schema", d.Schema)
	v.SetDefault("database.max_open_conns", d.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.ConnMaxLifetime.String())
	v.SetDefault("database.conn_max_idle_time", d.ConnMaxIdleTime.String())
	v.SetDefault("database.retry_attempts", d.RetryAttempts)
	v.SetDefault("database.retry_delay", d.RetryDelay.String())
	v.SetDefault("database.retry_max_delay", d.RetryMaxDelay.String())
	v.SetDefault("database.connect_timeout", d.ConnectTimeout.String())
	v.SetDefault("database.query_timeout", d.QueryTimeout.String())
	v.SetDefault("database.stored_procedure_timeout", d.StoredProcedureTimeout.String())
	v.SetDefault("database.health_check_interval", d.HealthCheckInterval.String())
	v.SetDefault("database.enable_auto_reconnect", true)
	v.SetDefault("database.enable_logging", true)
}
