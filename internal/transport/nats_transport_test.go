package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/thermo-agent/internal/transport"
	"github.com/benmeehan/thermo-agent/internal/utils"
	"github.com/benmeehan/thermo-agent/pkg/file"
)

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func dialNATS(t *testing.T, url, name string) *transport.NATSTransport {
	t.Helper()

	tr, err := transport.DialNATS(transport.NATSOptions{
		URL:            url,
		Name:           name,
		ConnectTimeout: 2 * time.Second,
	}, transport.Options{PublishTimeout: 2 * time.Second, InboxSize: 8}, zerolog.Nop())
	require.NoError(t, err)
	return tr
}

func TestNATSTransport_RoundTrip(t *testing.T) {
	srv := runNATSServer(t)

	aggregator := dialNATS(t, srv.ClientURL(), "aggregator-test")
	defer aggregator.Close()
	publisher := dialNATS(t, srv.ClientURL(), "pico-1")
	defer publisher.Close()

	require.NoError(t, aggregator.Subscribe("home.temperature"))
	require.NoError(t, publisher.Publish(context.Background(), "home.temperature", []byte("pico-1,23.47")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := aggregator.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "home.temperature", msg.Topic)
	assert.Equal(t, []byte("pico-1,23.47"), msg.Payload)
}

func TestNATSTransport_DisconnectSurfaces(t *testing.T) {
	srv := runNATSServer(t)

	tr := dialNATS(t, srv.ClientURL(), "aggregator-test")
	defer tr.Close()
	require.NoError(t, tr.Subscribe("home.temperature"))

	srv.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := tr.Receive(ctx)
	assert.ErrorIs(t, err, transport.ErrDisconnected)
}

func TestNATSTransport_Close(t *testing.T) {
	srv := runNATSServer(t)

	tr := dialNATS(t, srv.ClientURL(), "pico-1")
	require.NoError(t, tr.Subscribe("home.temperature"))

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err := tr.Receive(context.Background())
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.ErrorIs(t, tr.Publish(context.Background(), "home.temperature", nil), transport.ErrClosed)
}

func TestDial_NATS(t *testing.T) {
	srv := runNATSServer(t)

	config := utils.DefaultConfig()
	config.Bus.Transport = "nats"
	config.Bus.Broker = srv.ClientURL()
	config.Topic = "home.temperature"
	config.ApplyDefaults()

	tr, err := transport.Dial(&config, "pico-2", nil, file.NewFileService(), zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &transport.NATSTransport{}, tr)
	assert.NoError(t, tr.Close())
}
