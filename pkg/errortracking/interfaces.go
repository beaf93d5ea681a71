package errortracking

import (
	"context"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityDebug   Severity = "debug"
)

// Keys in the extra map that providers promote to searchable tags
const (
	TagEntity    = "entity"
	TagOperation = "operation"
	TagTable     = "table"
)

// Provider defines the interface for error tracking providers
type Provider interface {
	// CaptureError captures an error with the given severity and additional context
	CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{})

	// CaptureMessage captures a message with the given severity and additional context
	CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{})

	// CapturePanic captures a panic with stack trace
	CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{})

	// Flush waits up to timeout seconds for pending events
	Flush(timeout int) bool

	Close() error
}

// OperationContext builds the extra map for a failed data provider operation
func OperationContext(entity, operation, table string) map[string]interface{} {
	return map[string]interface{}{
		TagEntity:    entity,
		TagOperation: operation,
		TagTable:     table,
	}
}
