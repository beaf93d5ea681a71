package eventbroker

import (
	"fmt"

	"github.com/bitechdev/DataProvider/pkg/config"
)

// NewPublisherFromConfig builds the instrumented publisher named by
// cfg.Provider. Disabled events yield nil, nil.
func NewPublisherFromConfig(cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Provider {
	case "memory", "":
		return Instrument("memory", NewMemoryPublisher(0)), nil
	case "redis":
		p, err := NewRedisPublisher(RedisPublisherConfig{
			Host:       cfg.Redis.Host,
			Port:       cfg.Redis.Port,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			StreamName: cfg.Redis.StreamName,
			MaxLen:     cfg.Redis.MaxLen,
		})
		if err != nil {
			return nil, err
		}
		return Instrument("redis", p), nil
	case "nats":
		p, err := NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, cfg.Source)
		if err != nil {
			return nil, err
		}
		return Instrument("nats", p), nil
	case "mqtt":
		p, err := NewMQTTPublisher(MQTTPublisherConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
			Timeout:     cfg.MQTT.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return Instrument("mqtt", p), nil
	default:
		return nil, fmt.Errorf("unknown event provider: %s", cfg.Provider)
	}
}
