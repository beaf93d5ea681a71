package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bitechdev/DataProvider/pkg/logger"
)

// mqttClient is the part of pahomqtt.Client used for publishing
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisherConfig configures the MQTT publisher
type MQTTPublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Timeout     time.Duration
}

// MQTTPublisher publishes each event on <prefix>/<schema>/<entity>/<operation>
type MQTTPublisher struct {
	client  mqttClient
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTPublisher connects to the broker with auto-reconnect enabled
func NewMQTTPublisher(cfg MQTTPublisherConfig) (*MQTTPublisher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetConnectionLostHandler(func(client pahomqtt.Client, err error) {
		logger.Error("MQTT event publisher connection lost: %v", err)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return newMQTTPublisher(client, cfg), nil
}

func newMQTTPublisher(client mqttClient, cfg MQTTPublisherConfig) *MQTTPublisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "dataprovider"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTTPublisher{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS, timeout: cfg.Timeout}
}

// Topic returns the topic an event is published on
func (mp *MQTTPublisher) Topic(event *Event) string {
	return mp.prefix + "/" + strings.ReplaceAll(event.Type, ".", "/")
}

// Publish sends the JSON event and waits for the broker acknowledgement
func (mp *MQTTPublisher) Publish(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := mp.client.Publish(mp.Topic(event), mp.qos, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mp.timeout):
		return fmt.Errorf("publish to %s timed out", mp.Topic(event))
	}
	return token.Error()
}

// Close disconnects, allowing 250ms for in-flight messages
func (mp *MQTTPublisher) Close() error {
	mp.client.Disconnect(250)
	return nil
}
