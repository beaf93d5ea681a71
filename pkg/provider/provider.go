// Package provider is the data provider orchestrator: it validates a request,
// builds the SQL Server statement, executes it through the command primitive,
// maps rows back to entities and reports the outcome as a common.Response.
package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/bitechdev/DataProvider/pkg/cache"
	"github.com/bitechdev/DataProvider/pkg/command"
	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/config"
	"github.com/bitechdev/DataProvider/pkg/dbmanager"
	"github.com/bitechdev/DataProvider/pkg/entity"
	"github.com/bitechdev/DataProvider/pkg/eventbroker"
	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/metrics"
	"github.com/bitechdev/DataProvider/pkg/tracing"
)

// Provider reads and writes one entity type
type Provider[T entity.Entity] struct {
	db      *sql.DB
	conn    *dbmanager.Connection
	factory func() T
	schema  *entity.Schema
	table   string
	columns []string

	commandOpts []command.Option

	totals *cache.Totals
	events eventbroker.Publisher
	source string
}

// New creates a provider for T on db. factory must return a fresh, non-nil T.
func New[T entity.Entity](db *sql.DB, factory func() T, opts ...Option) (*Provider[T], error) {
	if db == nil {
		return nil, errors.New("provider: db is nil")
	}
	if factory == nil {
		return nil, errors.New("provider: factory is nil")
	}

	o := &options{registry: entity.GetDefaultRegistry()}
	for _, opt := range opts {
		opt(o)
	}

	sample := factory()
	if isNil(sample) {
		return nil, fmt.Errorf("%w: factory returned nil", ErrInvalidEntity)
	}
	schema, err := o.registry.Register(sample)
	if err != nil {
		return nil, err
	}

	p := &Provider[T]{
		db:      db,
		factory: factory,
		schema:  schema,
		table:   schema.Table(),
		columns: schema.OperationColumns(),
		totals:  cache.NewTotals(o.countCache, o.countTTL),
		events:  o.events,
		source:  o.source,
	}
	p.commandOpts = []command.Option{
		command.WithTable(p.table),
		command.WithQueryTimeout(o.queryTimeout),
		command.WithProcedureTimeout(o.procedureTimeout),
	}
	if p.source == "" {
		p.source = "dataprovider"
	}

	logger.Debug("Data provider ready: entity=%s, table=%s, columns=%d", schema.Name, p.table, len(p.columns))
	return p, nil
}

// Open connects to SQL Server through dbmanager and creates a provider that
// owns the connection. Close releases it.
func Open[T entity.Entity](ctx context.Context, cfg config.DatabaseConfig, factory func() T, opts ...Option) (*Provider[T], error) {
	conn, err := dbmanager.NewConnection("default", cfg)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	db, err := conn.Native()
	if err != nil {
		return nil, err
	}

	applied := conn.Config()
	opts = append([]Option{
		WithCommandTimeout(applied.QueryTimeout),
		WithProcedureTimeout(applied.StoredProcedureTimeout),
	}, opts...)

	p, err := New(db, factory, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// Close releases the connection opened by Open; it is a no-op for New
func (p *Provider[T]) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// DB returns the pool the provider runs on
func (p *Provider[T]) DB() *sql.DB {
	return p.db
}

// Schema returns the column layout of T
func (p *Provider[T]) Schema() *entity.Schema {
	return p.schema
}

// Table returns the quoted table reference
func (p *Provider[T]) Table() string {
	return p.table
}

// Columns returns every operation column of T
func (p *Provider[T]) Columns() []string {
	return append([]string(nil), p.columns...)
}

// NewEntity returns a fresh T from the factory
func (p *Provider[T]) NewEntity() T {
	return p.factory()
}

// Begin starts a transaction that can be passed to Save, Delete and their
// batch variants, of this or any other provider on the same pool.
func (p *Provider[T]) Begin(ctx context.Context) (*Tx, error) {
	return begin(ctx, p.db, p.table)
}

func (p *Provider[T]) command(q command.Querier) *command.Command {
	return command.New(q, p.commandOpts...)
}

// inTx runs fn on tx, or on a transaction of its own when tx is nil. An
// owned transaction commits only when fn returns true and no error.
func (p *Provider[T]) inTx(ctx context.Context, tx *Tx, fn func(tx *Tx) (bool, error)) (err error) {
	if tx != nil {
		_, err = fn(tx)
		return err
	}

	owned, err := p.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if !owned.Done() {
			_ = owned.Rollback()
		}
	}()

	commit, err := fn(owned)
	if err != nil || !commit {
		if rerr := owned.Rollback(); rerr != nil && err == nil {
			err = fmt.Errorf("rollback: %w", rerr)
		}
		return err
	}
	if err := owned.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// afterWrite queues the change event and the count cache invalidation
func (p *Provider[T]) afterWrite(tx *Tx, operation string, ids []int64) {
	if len(ids) == 0 {
		return
	}
	ids = append([]int64(nil), ids...)
	tx.onCommit(func(ctx context.Context) {
		if err := p.totals.Invalidate(ctx, p.table); err != nil {
			logger.Warn("Count cache invalidation failed: %v", err)
		}
		if p.events == nil {
			return
		}
		event := eventbroker.NewEvent(p.source, p.schema.Schema, p.schema.Name, operation, ids...)
		if err := p.events.Publish(ctx, event); err != nil {
			logger.Warn("Change event %s was not published: %v", event.Type, err)
		}
	})
}

// run executes one public operation: it opens a span, converts a panic into
// an error response and reports unexpected failures.
func run[R any](ctx context.Context, entityName, table, operation string, fn func(ctx context.Context) common.Response[R]) (resp common.Response[R]) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracing.StartOperation(ctx, entityName, operation, table)
	defer func() {
		if r := recover(); r != nil {
			method := entityName + "." + operation
			metrics.GetProvider().RecordPanic(method)
			err := logger.HandlePanic(method, r)
			resp = common.FromError[R](&OperationError{Entity: entityName, Operation: operation, Err: err})
		}

		var unexpected error
		if !resp.Correct && resp.Err != nil && !expected(resp.Err) {
			unexpected = resp.Err
			logger.OperationError(ctx, entityName, operation, table, resp.Err)
		}
		tracing.End(span, unexpected)
	}()
	return fn(ctx)
}

// fail wraps err with the operation for an execution failure
func fail[R any](entityName, operation string, err error) common.Response[R] {
	return common.FromError[R](&OperationError{Entity: entityName, Operation: operation, Err: err})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
