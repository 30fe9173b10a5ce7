package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/thermo-agent/pkg/file"
	"github.com/benmeehan/thermo-agent/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTTransport implements Transport over an MQTT broker.
type MQTTTransport struct {
	client mqtt.MQTTClient
	opts   Options
	logger zerolog.Logger
	inbox  *inbox

	mu     sync.Mutex
	topics []string
}

// NewMQTTTransport wraps an already connected client.
func NewMQTTTransport(client mqtt.MQTTClient, opts Options, logger zerolog.Logger) *MQTTTransport {
	return &MQTTTransport{
		client: client,
		opts:   opts,
		logger: logger,
		inbox:  newInbox(opts.InboxSize, opts.OnDrop),
	}
}

// DialMQTT connects to the broker and returns a transport that re-subscribes
// on every reconnect.
func DialMQTT(connOpts mqtt.Options, opts Options, fileClient file.FileOperations, logger zerolog.Logger) (*MQTTTransport, error) {
	service := mqtt.NewMqttService(fileClient)
	t := NewMQTTTransport(service, opts, logger)

	connOpts.OnConnect = t.onConnect
	connOpts.OnConnectionLost = t.onConnectionLost
	if err := service.Initialize(connOpts); err != nil {
		return nil, err
	}

	logger.Info().Str("broker", connOpts.Broker).Str("client_id", connOpts.ClientID).Msg("Connected to MQTT broker")
	return t, nil
}

// Publish sends the payload and waits for the broker acknowledgement
// (or the local write for QoS 0).
func (t *MQTTTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	if t.inbox.isClosed() {
		return ErrClosed
	}
	token := t.client.Publish(topic, t.opts.QOS, false, payload)
	return waitToken(ctx, token, t.opts.PublishTimeout)
}

// Subscribe registers the topic; inbound messages are queued for Receive.
func (t *MQTTTransport) Subscribe(topic string) error {
	token := t.client.Subscribe(topic, t.opts.QOS, t.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	t.mu.Lock()
	t.topics = append(t.topics, topic)
	t.mu.Unlock()

	t.logger.Info().Str("topic", topic).Msg("Subscribed to MQTT topic")
	return nil
}

// Receive blocks until a message arrives, the connection is lost, ctx is done
// or the transport is closed.
func (t *MQTTTransport) Receive(ctx context.Context) (Message, error) {
	return t.inbox.receive(ctx)
}

// Close unsubscribes and disconnects.
func (t *MQTTTransport) Close() error {
	if t.inbox.isClosed() {
		return nil
	}
	t.inbox.close()

	t.mu.Lock()
	topics := append([]string(nil), t.topics...)
	t.mu.Unlock()

	var err error
	if len(topics) > 0 {
		token := t.client.Unsubscribe(topics...)
		if token.WaitTimeout(time.Second) {
			err = token.Error()
		}
	}
	t.client.Disconnect(250)
	return err
}

// handleMessage is the paho callback for subscribed topics.
func (t *MQTTTransport) handleMessage(_ MQTT.Client, msg MQTT.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	if !t.inbox.deliver(Message{Topic: msg.Topic(), Payload: payload}) {
		t.logger.Warn().Str("topic", msg.Topic()).Msg("Inbox full, dropping message")
	}
}

func (t *MQTTTransport) onConnect() {
	t.mu.Lock()
	topics := append([]string(nil), t.topics...)
	t.mu.Unlock()

	for _, topic := range topics {
		token := t.client.Subscribe(topic, t.opts.QOS, t.handleMessage)
		if token.Wait() && token.Error() != nil {
			t.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to re-subscribe after reconnect")
			continue
		}
		t.logger.Info().Str("topic", topic).Msg("Re-subscribed after reconnect")
	}
}

func (t *MQTTTransport) onConnectionLost(err error) {
	t.logger.Error().Err(err).Msg("MQTT connection lost")
	t.inbox.fail(err)
}

func waitToken(ctx context.Context, token MQTT.Token, timeout time.Duration) error {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer:
		return fmt.Errorf("publish not acknowledged within %s", timeout)
	}
}
