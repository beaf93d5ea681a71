package errortracking

import (
	"context"
	"fmt"
	"sync"
)

// Event is one capture kept by a Recorder
type Event struct {
	Severity Severity
	Message  string
	Err      error
	Panic    bool
	Extra    map[string]interface{}
}

// Recorder keeps captured events in memory. It backs the "memory" provider
// and lets callers assert on what would have been reported.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewRecorder keeps at most limit events (0 means unbounded), dropping the oldest
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

func (r *Recorder) CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{}) {
	if err == nil {
		return
	}
	r.add(Event{Severity: severity, Message: err.Error(), Err: err, Extra: copyExtra(extra)})
}

func (r *Recorder) CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{}) {
	if message == "" {
		return
	}
	r.add(Event{Severity: severity, Message: message, Extra: copyExtra(extra)})
}

func (r *Recorder) CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{}) {
	if recovered == nil {
		return
	}
	e := Event{Severity: SeverityError, Message: fmt.Sprintf("Panic: %v", recovered), Panic: true, Extra: copyExtra(extra)}
	if stackTrace != nil {
		e.Extra["stack_trace"] = string(stackTrace)
	}
	r.add(e)
}

// Events returns a snapshot of the captured events, oldest first
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset drops every captured event
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *Recorder) Flush(timeout int) bool {
	return true
}

func (r *Recorder) Close() error {
	return nil
}

func copyExtra(extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(extra)+1)
	for k, v := range extra {
		out[k] = v
	}
	return out
}
