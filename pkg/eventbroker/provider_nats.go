package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// natsConn is the part of *nats.Conn used for publishing
type natsConn interface {
	PublishMsg(m *nats.Msg) error
	Close()
}

// NATSPublisher publishes each event on <prefix>.<schema>.<entity>.<operation>
type NATSPublisher struct {
	nc            natsConn
	subjectPrefix string
}

// NewNATSPublisher connects to url
func NewNATSPublisher(url, subjectPrefix, name string) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("dataprovider-"+name),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNATSPublisher(nc, subjectPrefix), nil
}

func newNATSPublisher(nc natsConn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "dataprovider"
	}
	return &NATSPublisher{nc: nc, subjectPrefix: prefix}
}

// Subject returns the subject an event is published on
func (np *NATSPublisher) Subject(event *Event) string {
	return np.subjectPrefix + "." + event.Type
}

// Publish sends the JSON event with its id in the Nats-Msg-Id header
func (np *NATSPublisher) Publish(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(np.Subject(event))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	if err := np.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the connection
func (np *NATSPublisher) Close() error {
	np.nc.Close()
	return nil
}
