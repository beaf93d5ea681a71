package eventbroker

import (
	"context"
	"time"

	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/metrics"
)

// Publisher delivers committed change events to a backend
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// instrumented records metrics and logs failures around a Publisher
type instrumented struct {
	name string
	next Publisher
}

// Instrument wraps p so every publish is counted under name
func Instrument(name string, p Publisher) Publisher {
	if p == nil {
		return nil
	}
	return &instrumented{name: name, next: p}
}

func (i *instrumented) Publish(ctx context.Context, event *Event) error {
	start := time.Now()
	err := i.next.Publish(ctx, event)
	metrics.GetProvider().RecordEventPublished(i.name, event.Type, err)
	if err != nil {
		logger.Warn("Failed to publish event %s (%s) via %s after %v: %v", event.ID, event.Type, i.name, time.Since(start), err)
		return err
	}
	logger.Debug("Published event %s (%s) via %s", event.ID, event.Type, i.name)
	return nil
}

func (i *instrumented) Close() error {
	return i.next.Close()
}

// Unwrap returns the wrapped publisher
func (i *instrumented) Unwrap() Publisher {
	return i.next
}
