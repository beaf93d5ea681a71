package eventbroker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// MemoryPublisher dispatches events in-process to pattern subscribers and
// keeps the most recent events for inspection.
type MemoryPublisher struct {
	subs      *subscriptionManager
	mu        sync.RWMutex
	events    []*Event
	maxEvents int
	published atomic.Int64
	closed    atomic.Bool
}

// NewMemoryPublisher keeps at most maxEvents events (0 means 1000)
func NewMemoryPublisher(maxEvents int) *MemoryPublisher {
	if maxEvents <= 0 {
		maxEvents = 1000
	}
	return &MemoryPublisher{
		subs:      newSubscriptionManager(),
		maxEvents: maxEvents,
	}
}

// Subscribe registers handler for event types matching pattern
func (m *MemoryPublisher) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	return m.subs.Subscribe(pattern, handler)
}

// Unsubscribe removes a subscription
func (m *MemoryPublisher) Unsubscribe(id SubscriptionID) error {
	return m.subs.Unsubscribe(id)
}

// Publish stores a copy of event and runs every matching handler in turn.
// Handler errors are joined; all handlers run regardless.
func (m *MemoryPublisher) Publish(ctx context.Context, event *Event) error {
	if m.closed.Load() {
		return errors.New("memory publisher is closed")
	}
	if err := event.Validate(); err != nil {
		return err
	}

	stored := event.Clone()
	m.mu.Lock()
	m.events = append(m.events, stored)
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
	m.mu.Unlock()
	m.published.Add(1)

	var errs []error
	for _, h := range m.subs.GetMatching(event.Type) {
		if err := h.Handle(ctx, event.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("handler for %s: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

// Events returns the retained events, oldest first
func (m *MemoryPublisher) Events() []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Event, len(m.events))
	for i, e := range m.events {
		out[i] = e.Clone()
	}
	return out
}

// Published returns how many events were accepted
func (m *MemoryPublisher) Published() int64 {
	return m.published.Load()
}

// Close drops subscriptions and rejects further events
func (m *MemoryPublisher) Close() error {
	m.closed.Store(true)
	m.subs.Clear()
	return nil
}
