// Package transport adapts a publish/subscribe bus to the byte-in/byte-out
// contract the session loops need: publish to a topic, subscribe to a topic
// and block until the next inbound message.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrDisconnected is returned by Receive once per lost connection.
	ErrDisconnected = errors.New("transport disconnected")

	// ErrClosed is returned by Receive and Publish after Close.
	ErrClosed = errors.New("transport closed")
)

// Message is an inbound payload and the topic it arrived on.
type Message struct {
	Topic   string
	Payload []byte
}

// Transport is a connected bus client.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// Options are shared by all adapters.
type Options struct {
	QOS            byte
	PublishTimeout time.Duration
	InboxSize      int

	// OnDrop is called for every inbound message discarded because the inbox is full.
	OnDrop func(Message)
}

// inbox buffers messages delivered by a client library callback until the
// session loop asks for them. Delivery never blocks the library: a full inbox
// drops the message.
type inbox struct {
	messages  chan Message
	faults    chan error
	closed    chan struct{}
	closeOnce sync.Once
	onDrop    func(Message)
}

func newInbox(size int, onDrop func(Message)) *inbox {
	if size <= 0 {
		size = 1
	}
	return &inbox{
		messages: make(chan Message, size),
		faults:   make(chan error, 1),
		closed:   make(chan struct{}),
		onDrop:   onDrop,
	}
}

func (in *inbox) deliver(msg Message) bool {
	select {
	case <-in.closed:
		return false
	default:
	}

	select {
	case in.messages <- msg:
		return true
	default:
		if in.onDrop != nil {
			in.onDrop(msg)
		}
		return false
	}
}

// fail records a connection fault. Faults raised while one is pending collapse into it.
func (in *inbox) fail(err error) {
	select {
	case in.faults <- err:
	default:
	}
}

func (in *inbox) receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-in.messages:
		return msg, nil
	default:
	}

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-in.closed:
		return Message{}, ErrClosed
	case err := <-in.faults:
		return Message{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	case msg := <-in.messages:
		return msg, nil
	}
}

func (in *inbox) close() {
	in.closeOnce.Do(func() { close(in.closed) })
}

func (in *inbox) isClosed() bool {
	select {
	case <-in.closed:
		return true
	default:
		return false
	}
}
