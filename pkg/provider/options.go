package provider

import (
	"time"

	"github.com/bitechdev/DataProvider/pkg/cache"
	"github.com/bitechdev/DataProvider/pkg/entity"
	"github.com/bitechdev/DataProvider/pkg/eventbroker"
)

type options struct {
	queryTimeout     time.Duration
	procedureTimeout time.Duration
	countCache       cache.Provider
	countTTL         time.Duration
	events           eventbroker.Publisher
	source           string
	registry         *entity.Registry
}

// Option configures a Provider
type Option func(*options)

// WithCommandTimeout sets the timeout of every text command
func WithCommandTimeout(d time.Duration) Option {
	return func(o *options) {
		o.queryTimeout = d
	}
}

// WithProcedureTimeout sets the timeout of stored procedure calls
func WithProcedureTimeout(d time.Duration) Option {
	return func(o *options) {
		o.procedureTimeout = d
	}
}

// WithCountCache caches GetRecords totals in c for ttl. Saves and deletes
// invalidate the totals of the table once committed.
func WithCountCache(c cache.Provider, ttl time.Duration) Option {
	return func(o *options) {
		o.countCache = c
		o.countTTL = ttl
	}
}

// WithEvents publishes a change event after every committed save or delete
func WithEvents(p eventbroker.Publisher) Option {
	return func(o *options) {
		o.events = p
	}
}

// WithSource names the service in published events
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithRegistry describes entities with r instead of the default registry
func WithRegistry(r *entity.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}
