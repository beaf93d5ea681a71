package metrics

import "github.com/prometheus/client_golang/prometheus"

// Config holds configuration for the metrics provider
type Config struct {
	// Namespace is an optional prefix for all metric names
	Namespace string

	// HTTPRequestBuckets defines histogram buckets for HTTP request duration (in seconds)
	HTTPRequestBuckets []float64

	// DBQueryBuckets defines histogram buckets for database command duration (in seconds)
	DBQueryBuckets []float64

	// Registerer receives the collectors; nil means a private registry
	Registerer prometheus.Registerer

	// Gatherer serves the handler; nil means the registry behind Registerer
	Gatherer prometheus.Gatherer
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTPRequestBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		DBQueryBuckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30},
	}
}

// ApplyDefaults fills in any missing values with defaults
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if len(c.HTTPRequestBuckets) == 0 {
		c.HTTPRequestBuckets = d.HTTPRequestBuckets
	}
	if len(c.DBQueryBuckets) == 0 {
		c.DBQueryBuckets = d.DBQueryBuckets
	}
}
