// Package command runs SQL text and stored procedures and returns their output
// as result tables wrapped in a common.Response.
package command

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/metrics"
	"github.com/bitechdev/DataProvider/pkg/query"
	"github.com/bitechdev/DataProvider/pkg/result"
	"github.com/bitechdev/DataProvider/pkg/tracing"
)

// Default per-command timeouts
const (
	DefaultQueryTimeout     = 15 * time.Second
	DefaultProcedureTimeout = 30 * time.Second
)

var (
	// ErrNoRows marks a command that ran but produced no rows
	ErrNoRows = errors.New("command returned no rows")

	// ErrInvalidProcedure is returned for a stored procedure name that is not an identifier
	ErrInvalidProcedure = errors.New("invalid stored procedure name")
)

// Type tells how the command text is interpreted
type Type int

const (
	Text Type = iota
	StoredProcedure
)

func (t Type) String() string {
	if t == StoredProcedure {
		return "StoredProcedure"
	}
	return "Text"
}

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Command executes statements against a Querier
type Command struct {
	q                Querier
	table            string
	queryTimeout     time.Duration
	procedureTimeout time.Duration
}

// Option configures a Command
type Option func(*Command)

// WithQueryTimeout sets the default timeout of text commands
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Command) {
		if d > 0 {
			c.queryTimeout = d
		}
	}
}

// WithProcedureTimeout sets the default timeout of stored procedures
func WithProcedureTimeout(d time.Duration) Option {
	return func(c *Command) {
		if d > 0 {
			c.procedureTimeout = d
		}
	}
}

// WithTable labels metrics, logs and spans with the table the command targets
func WithTable(table string) Option {
	return func(c *Command) {
		c.table = table
	}
}

// New creates a command bound to q
func New(q Querier, opts ...Option) *Command {
	c := &Command{
		q:                q,
		queryTimeout:     DefaultQueryTimeout,
		procedureTimeout: DefaultProcedureTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs SQL text with the default query timeout
func (c *Command) Query(ctx context.Context, text string, params []query.Parameter) common.Response[[]*result.Table] {
	return c.Execute(ctx, text, params, Text, 0)
}

// StoredProcedure runs a procedure with the default procedure timeout
func (c *Command) StoredProcedure(ctx context.Context, name string, params []query.Parameter) common.Response[[]*result.Table] {
	return c.Execute(ctx, name, params, StoredProcedure, 0)
}

// Execute runs text and reads every result set. A timeout <= 0 uses the
// default for typ. A command that yields no rows at all is reported with
// Correct=false, common.MessageNoRows and ErrNoRows; its tables are kept.
func (c *Command) Execute(ctx context.Context, text string, params []query.Parameter, typ Type, timeout time.Duration) common.Response[[]*result.Table] {
	if typ == StoredProcedure {
		sqlText, err := procedureCall(text, params)
		if err != nil {
			return common.FromError[[]*result.Table](err)
		}
		text = sqlText
	}

	tables, err := c.run(ctx, text, params, c.timeout(typ, timeout), func(ctx context.Context, args []any) ([]*result.Table, error) {
		rows, err := c.q.QueryContext(ctx, text, args...)
		if err != nil {
			return nil, err
		}
		return result.Read(rows)
	})
	return respond(tables, err)
}

// ExecuteStmt runs a prepared statement; text is used for logs and spans only
func (c *Command) ExecuteStmt(ctx context.Context, stmt *sql.Stmt, text string, params []query.Parameter) common.Response[[]*result.Table] {
	tables, err := c.run(ctx, text, params, c.queryTimeout, func(ctx context.Context, args []any) ([]*result.Table, error) {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return nil, err
		}
		return result.Read(rows)
	})
	return respond(tables, err)
}

// Exec runs SQL text that produces no result set and returns the affected row count
func (c *Command) Exec(ctx context.Context, text string, params []query.Parameter, timeout time.Duration) common.Response[int64] {
	var affected int64
	_, err := c.run(ctx, text, params, c.timeout(Text, timeout), func(ctx context.Context, args []any) ([]*result.Table, error) {
		res, err := c.q.ExecContext(ctx, text, args...)
		if err != nil {
			return nil, err
		}
		affected, err = res.RowsAffected()
		return nil, err
	})
	if err != nil {
		return common.FromError[int64](err)
	}
	return common.OK(affected)
}

func (c *Command) timeout(typ Type, timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	if typ == StoredProcedure {
		return c.procedureTimeout
	}
	return c.queryTimeout
}

// run applies the timeout and wraps do with logging, metrics and a span
func (c *Command) run(ctx context.Context, text string, params []query.Parameter, timeout time.Duration,
	do func(ctx context.Context, args []any) ([]*result.Table, error)) ([]*result.Table, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	operation := Operation(text)
	logger.Debug("SQL: %s [params: %v]", text, describe(params))

	ctx, span := tracing.StartCommand(ctx, operation, text)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	tables, err := do(ctx, query.Params(params))
	elapsed := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%s on %s: %w", operation, c.label(), err)
	}

	logger.SQL(operation, c.table, text, elapsed, err)
	metrics.GetProvider().RecordDBQuery(operation, c.label(), elapsed, err)
	tracing.End(span, err)
	return tables, err
}

func (c *Command) label() string {
	if c.table == "" {
		return "unknown"
	}
	return c.table
}

func respond(tables []*result.Table, err error) common.Response[[]*result.Table] {
	if err != nil {
		return common.FromError[[]*result.Table](err)
	}
	if !result.AnyRows(tables) {
		return common.Fail[[]*result.Table](common.MessageNoRows, ErrNoRows).WithModel(tables)
	}
	return common.OK(tables)
}

// Operation returns the lower-cased leading keyword of text, e.g. "select"
func Operation(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(strings.TrimRight(fields[0], ";"))
}

var procedureName = regexp.MustCompile(`^(\[[^\]]+\]|[A-Za-z_][A-Za-z0-9_@#$]*)(\.(\[[^\]]+\]|[A-Za-z_][A-Za-z0-9_@#$]*)){0,2}$`)

// procedureCall renders Exec name @a = @a, @b = @b;
func procedureCall(name string, params []query.Parameter) (string, error) {
	name = strings.TrimSpace(name)
	if !procedureName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidProcedure, name)
	}
	if len(params) == 0 {
		return "Exec " + name + ";", nil
	}
	args := make([]string, len(params))
	for i, p := range params {
		args[i] = fmt.Sprintf("@%s = @%s", p.Name, p.Name)
	}
	return "Exec " + name + " " + strings.Join(args, ", ") + ";", nil
}

func describe(params []query.Parameter) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = "@" + p.Name + "=" + p.Value.String()
	}
	return out
}
