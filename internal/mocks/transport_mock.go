package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/thermo-agent/internal/transport"
)

// MockTransport is a mock implementation of the transport.Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func (m *MockTransport) Subscribe(topic string) error {
	args := m.Called(topic)
	return args.Error(0)
}

func (m *MockTransport) Receive(ctx context.Context) (transport.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(transport.Message), args.Error(1)
}

func (m *MockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}

// BlockUntilCancelled makes a Receive expectation wait for its context to end.
func BlockUntilCancelled(args mock.Arguments) {
	<-args.Get(0).(context.Context).Done()
}
