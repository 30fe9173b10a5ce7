package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSOptions configures the NATS connection.
type NATSOptions struct {
	URL            string
	Name           string
	CACertPath     string
	ConnectTimeout time.Duration
}

// NATSTransport implements Transport over a NATS server. Topics are used as
// subjects unchanged.
type NATSTransport struct {
	conn   *nats.Conn
	opts   Options
	logger zerolog.Logger
	inbox  *inbox

	mu   sync.Mutex
	subs []*nats.Subscription
}

// DialNATS connects to the server. The client reconnects indefinitely and
// restores subscriptions by itself; each disconnect surfaces once through Receive.
func DialNATS(natsOpts NATSOptions, opts Options, logger zerolog.Logger) (*NATSTransport, error) {
	t := &NATSTransport{
		opts:   opts,
		logger: logger,
		inbox:  newInbox(opts.InboxSize, opts.OnDrop),
	}

	options := []nats.Option{
		nats.Name(natsOpts.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				return
			}
			t.logger.Error().Err(err).Msg("NATS connection lost")
			t.inbox.fail(err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			t.logger.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS server")
		}),
	}
	if natsOpts.ConnectTimeout > 0 {
		options = append(options, nats.Timeout(natsOpts.ConnectTimeout))
	}
	if natsOpts.CACertPath != "" {
		options = append(options, nats.RootCAs(natsOpts.CACertPath))
	}

	conn, err := nats.Connect(natsOpts.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", natsOpts.URL, err)
	}
	t.conn = conn

	logger.Info().Str("url", natsOpts.URL).Str("name", natsOpts.Name).Msg("Connected to NATS server")
	return t, nil
}

// Publish hands the payload to the client and flushes it to the server.
func (t *NATSTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	if t.inbox.isClosed() {
		return ErrClosed
	}
	if err := t.conn.Publish(topic, payload); err != nil {
		return err
	}

	if t.opts.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.PublishTimeout)
		defer cancel()
	}
	// FlushWithContext refuses contexts without a deadline
	if _, ok := ctx.Deadline(); !ok {
		return t.conn.Flush()
	}
	return t.conn.FlushWithContext(ctx)
}

// Subscribe registers the subject; inbound messages are queued for Receive.
func (t *NATSTransport) Subscribe(topic string) error {
	sub, err := t.conn.Subscribe(topic, func(msg *nats.Msg) {
		if !t.inbox.deliver(Message{Topic: msg.Subject, Payload: msg.Data}) {
			t.logger.Warn().Str("topic", msg.Subject).Msg("Inbox full, dropping message")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	// the server must know the interest before Subscribe returns
	if err := t.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()

	t.logger.Info().Str("topic", topic).Msg("Subscribed to NATS subject")
	return nil
}

// Receive blocks until a message arrives, the connection is lost, ctx is done
// or the transport is closed.
func (t *NATSTransport) Receive(ctx context.Context) (Message, error) {
	return t.inbox.receive(ctx)
}

// Close unsubscribes and closes the connection.
func (t *NATSTransport) Close() error {
	if t.inbox.isClosed() {
		return nil
	}
	t.inbox.close()

	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for _, sub := range t.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.subs = nil
	t.conn.Close()
	return firstErr
}
