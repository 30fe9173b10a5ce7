package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/thermo-agent/internal/codec"
	"github.com/benmeehan/thermo-agent/internal/metrics"
	"github.com/benmeehan/thermo-agent/internal/mocks"
	"github.com/benmeehan/thermo-agent/internal/services"
)

func newPublisher(interval time.Duration, s *mocks.MockSensor, tr *mocks.MockTransport) (*services.PublisherService, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	p := services.NewPublisherService("home/temperature", "pico-1", interval, s, codec.NewTextCodec(), tr, m, zerolog.Nop())
	return p, m
}

// TestPublisherService_PublishReading_Success tests one sample, encode and publish cycle.
func TestPublisherService_PublishReading_Success(t *testing.T) {
	// Setup
	mockSensor := new(mocks.MockSensor)
	mockTransport := new(mocks.MockTransport)
	mockSensor.On("Sample", mock.Anything).Return(23.466, nil)
	mockTransport.On("Publish", mock.Anything, "home/temperature", []byte("pico-1,23.47")).Return(nil)

	p, _ := newPublisher(time.Second, mockSensor, mockTransport)

	// Execute
	reading, err := p.PublishReading(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "pico-1", reading.PublisherID)
	assert.Equal(t, 23.466, reading.Temperature)
	mockTransport.AssertExpectations(t)
}

// TestPublisherService_PublishReading_SensorFailure tests that a failed sample publishes nothing.
func TestPublisherService_PublishReading_SensorFailure(t *testing.T) {
	// Setup
	mockSensor := new(mocks.MockSensor)
	mockTransport := new(mocks.MockTransport)
	mockSensor.On("Sample", mock.Anything).Return(0.0, errors.New("sensor offline"))

	p, _ := newPublisher(time.Second, mockSensor, mockTransport)

	// Execute
	_, err := p.PublishReading(context.Background())

	// Assert
	assert.ErrorContains(t, err, "sensor offline")
	mockTransport.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// TestPublisherService_Start_Success tests the start and double start of the PublisherService.
func TestPublisherService_Start_Success(t *testing.T) {
	// Setup
	mockSensor := new(mocks.MockSensor)
	mockTransport := new(mocks.MockTransport)
	mockSensor.On("Sample", mock.Anything).Return(21.0, nil).Maybe()
	mockTransport.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	p, _ := newPublisher(time.Hour, mockSensor, mockTransport)

	// Execute
	err := p.Start()

	// Assert
	assert.NoError(t, err)

	err = p.Start()
	assert.Error(t, err)
	assert.Equal(t, "publisher service is already running", err.Error())

	// Cleanup
	assert.NoError(t, p.Stop())
}

// TestPublisherService_Stop_NotRunning tests stopping a service that was never started.
func TestPublisherService_Stop_NotRunning(t *testing.T) {
	p, _ := newPublisher(time.Second, new(mocks.MockSensor), new(mocks.MockTransport))

	err := p.Stop()

	assert.Error(t, err)
	assert.Equal(t, "publisher service is not running", err.Error())
}

// TestPublisherService_ContinuesAfterFailure tests that a failed publish does not stop the loop.
func TestPublisherService_ContinuesAfterFailure(t *testing.T) {
	// Setup
	mockSensor := new(mocks.MockSensor)
	mockTransport := new(mocks.MockTransport)
	mockSensor.On("Sample", mock.Anything).Return(26.5, nil)
	mockTransport.On("Publish", mock.Anything, "home/temperature", []byte("pico-1,26.50")).
		Return(errors.New("broker unavailable")).Once()
	mockTransport.On("Publish", mock.Anything, "home/temperature", []byte("pico-1,26.50")).Return(nil)

	p, m := newPublisher(10*time.Millisecond, mockSensor, mockTransport)

	// Execute
	require.NoError(t, p.Start())

	// Assert
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ReadingsPublished) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures))

	require.NoError(t, p.Stop())
}
