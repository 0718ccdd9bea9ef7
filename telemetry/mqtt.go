package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const defaultPublishTimeout = 2 * time.Second

var ErrPublishTimeout = fmt.Errorf("mqtt publish timed out")

// DialMQTT connects a client to the broker.
func DialMQTT(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("could not connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", broker, err)
	}
	return client, nil
}

// MQTTPublisher publishes every sample as JSON on a single topic.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	qos     byte
	retain  bool
	timeout time.Duration
}

type MQTTOpt func(*MQTTPublisher)

func WithQoS(qos byte) MQTTOpt {
	return func(p *MQTTPublisher) {
		p.qos = qos
	}
}

func WithRetain() MQTTOpt {
	return func(p *MQTTPublisher) {
		p.retain = true
	}
}

func WithPublishTimeout(timeout time.Duration) MQTTOpt {
	return func(p *MQTTPublisher) {
		p.timeout = timeout
	}
}

func NewMQTTPublisher(client mqtt.Client, topic string, opts ...MQTTOpt) *MQTTPublisher {
	p := &MQTTPublisher{
		client:  client,
		topic:   topic,
		timeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *MQTTPublisher) Record(ctx context.Context, s Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not marshal sample: %w", err)
	}
	token := p.client.Publish(p.topic, p.qos, p.retain, payload)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("could not publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects the client, waiting up to quiesce ms for in-flight work.
func (p *MQTTPublisher) Close(quiesce uint) {
	p.client.Disconnect(quiesce)
}
