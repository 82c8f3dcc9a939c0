package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/RackRelay/internal/config"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // ms

	statusOnline  = "online"
	statusOffline = "offline"
)

var ErrConnectionFailed = errors.New("mqtt connection failed")

// mqttClient is the part of the paho client the publisher uses.
type mqttClient interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher forwards events to {prefix}/{rack}/events/{type} and keeps a
// retained online/offline flag at {prefix}/{rack}/status.
type MQTTPublisher struct {
	client  mqttClient
	prefix  string
	rack    string
	qos     byte
	timeout time.Duration
	logger  *zap.Logger
}

// ConnectMQTT dials the broker and returns a publisher once the first
// connection is established.
func ConnectMQTT(cfg config.MQTTConfig, rack string, logger *zap.Logger) (*MQTTPublisher, error) {
	p := &MQTTPublisher{
		prefix:  cfg.TopicPrefix,
		rack:    rack,
		qos:     byte(cfg.QoS),
		timeout: defaultPublishTimeout,
		logger:  logger,
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetWill(p.StatusTopic(), statusPayload(statusOffline), p.qos, true)

	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		logger.Info("MQTT connected", zap.String("broker", cfg.Broker))
		c.Publish(p.StatusTopic(), p.qos, true, statusPayload(statusOnline))
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	p.client = client
	return p, nil
}

func (p *MQTTPublisher) EventTopic(t EventType) string {
	return fmt.Sprintf("%s/%s/events/%s", p.prefix, p.rack, t)
}

func (p *MQTTPublisher) StatusTopic() string {
	return fmt.Sprintf("%s/%s/status", p.prefix, p.rack)
}

// Publish sends the event without waiting for the broker; delivery failures
// are logged.
func (p *MQTTPublisher) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	topic := p.EventTopic(ev.Type)
	token := p.client.Publish(topic, p.qos, false, payload)

	go func() {
		if !token.WaitTimeout(p.timeout) {
			p.logger.Warn("MQTT publish timed out", zap.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

// Close publishes the graceful offline flag and disconnects.
func (p *MQTTPublisher) Close() {
	if p.client == nil {
		return
	}

	if p.client.IsConnected() {
		token := p.client.Publish(p.StatusTopic(), p.qos, true, statusPayload(statusOffline))
		token.WaitTimeout(p.timeout)
	}

	p.client.Disconnect(defaultDisconnectQuiesce)
}

func statusPayload(status string) string {
	data, _ := json.Marshal(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return string(data)
}
