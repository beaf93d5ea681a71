package eventbroker

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bitechdev/DataProvider/pkg/logger"
)

var (
	ErrEmptyPattern         = errors.New("subscription pattern is empty")
	ErrNilHandler           = errors.New("subscription handler is nil")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// SubscriptionID identifies a subscription on one publisher
type SubscriptionID string

type subscription struct {
	id      SubscriptionID
	pattern []string
	handler EventHandler
}

// subscriptionManager keeps subscriptions in registration order so handlers
// run in the order they were added.
type subscriptionManager struct {
	mu   sync.RWMutex
	subs []subscription
	seq  uint64
}

func newSubscriptionManager() *subscriptionManager {
	return &subscriptionManager{}
}

// Subscribe registers handler for event types matching pattern. Patterns are
// dot separated like event types; "*" matches one segment, a lone "*" matches all.
func (sm *subscriptionManager) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	if pattern == "" {
		return "", ErrEmptyPattern
	}
	if handler == nil {
		return "", ErrNilHandler
	}

	sm.mu.Lock()
	sm.seq++
	id := SubscriptionID(fmt.Sprintf("sub-%d", sm.seq))
	sm.subs = append(sm.subs, subscription{id: id, pattern: strings.Split(pattern, "."), handler: handler})
	sm.mu.Unlock()

	logger.Debug("Subscribed %s to %s", id, pattern)
	return id, nil
}

func (sm *subscriptionManager) Unsubscribe(id SubscriptionID) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for i, s := range sm.subs {
		if s.id == id {
			sm.subs = append(sm.subs[:i], sm.subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
}

// GetMatching returns the handlers subscribed to eventType, oldest first
func (sm *subscriptionManager) GetMatching(eventType string) []EventHandler {
	segments := strings.Split(eventType, ".")

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var handlers []EventHandler
	for _, s := range sm.subs {
		if matchSegments(s.pattern, segments) {
			handlers = append(handlers, s.handler)
		}
	}
	return handlers
}

func (sm *subscriptionManager) Clear() {
	sm.mu.Lock()
	sm.subs = nil
	sm.mu.Unlock()
}

// matchPattern reports whether an event type such as dbo.Customer.created
// matches pattern.
func matchPattern(pattern, eventType string) bool {
	return matchSegments(strings.Split(pattern, "."), strings.Split(eventType, "."))
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) == 1 && pattern[0] == "*" {
		return true
	}
	if len(pattern) != len(segments) {
		return false
	}
	for i, p := range pattern {
		if p != "*" && p != segments[i] {
			return false
		}
	}
	return true
}
