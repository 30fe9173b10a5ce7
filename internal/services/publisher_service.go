package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/thermo-agent/internal/codec"
	"github.com/benmeehan/thermo-agent/internal/metrics"
	"github.com/benmeehan/thermo-agent/internal/models"
	"github.com/benmeehan/thermo-agent/internal/transport"
	"github.com/benmeehan/thermo-agent/pkg/sensor"
)

// PublisherService periodically samples the local sensor and publishes the
// encoded reading to the shared topic.
type PublisherService struct {
	PubTopic    string
	PublisherID string
	Interval    time.Duration
	Sensor      sensor.Sensor
	Codec       codec.Codec
	Transport   transport.Transport
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPublisherService initializes a new PublisherService.
func NewPublisherService(pubTopic, publisherID string, interval time.Duration, sensor sensor.Sensor,
	codec codec.Codec, transport transport.Transport, metrics *metrics.Metrics, logger zerolog.Logger) *PublisherService {

	return &PublisherService{
		PubTopic:    pubTopic,
		PublisherID: publisherID,
		Interval:    interval,
		Sensor:      sensor,
		Codec:       codec,
		Transport:   transport,
		Metrics:     metrics,
		Logger:      logger.With().Str("publisher_id", publisherID).Logger(),
	}
}

// Start launches the publish loop in a separate goroutine.
func (p *PublisherService) Start() error {
	if p.ctx != nil {
		p.Logger.Warn().Msg("PublisherService is already running")
		return errors.New("publisher service is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runPublishLoop()
	}()

	p.Logger.Info().Str("topic", p.PubTopic).Dur("interval", p.Interval).Msg("PublisherService started successfully")
	return nil
}

// Stop gracefully stops the publisher service, waiting for an in-flight publish.
func (p *PublisherService) Stop() error {
	if p.ctx == nil {
		p.Logger.Warn().Msg("PublisherService is not running")
		return errors.New("publisher service is not running")
	}

	p.cancel()
	p.wg.Wait()

	p.ctx = nil
	p.cancel = nil

	p.Logger.Info().Msg("PublisherService stopped successfully")
	return nil
}

// runPublishLoop publishes once immediately and then on every tick. Ticks run
// on this goroutine only; the ticker drops ticks missed by a slow cycle.
func (p *PublisherService) runPublishLoop() {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.publishAndLog(p.ctx)

	for {
		select {
		case <-ticker.C:
			p.publishAndLog(p.ctx)

		case <-p.ctx.Done():
			p.Logger.Info().Msg("PublisherService stopping gracefully")
			return
		}
	}
}

func (p *PublisherService) publishAndLog(ctx context.Context) {
	reading, err := p.PublishReading(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.Metrics.PublishFailures.Inc()
		p.Logger.Error().Err(err).Msg("Failed to publish reading")
		return
	}

	p.Metrics.ReadingsPublished.Inc()
	p.Logger.Debug().Float64("temperature", reading.Temperature).Msg("Reading published successfully")
}

// PublishReading runs one sample, encode and publish cycle.
func (p *PublisherService) PublishReading(ctx context.Context) (models.Reading, error) {
	temperature, err := p.Sensor.Sample(ctx)
	if err != nil {
		return models.Reading{}, fmt.Errorf("failed to sample sensor: %w", err)
	}

	reading := models.Reading{
		PublisherID: p.PublisherID,
		Temperature: temperature,
	}

	payload, err := p.Codec.Encode(reading)
	if err != nil {
		return reading, fmt.Errorf("failed to encode reading: %w", err)
	}

	if err := p.Transport.Publish(ctx, p.PubTopic, payload); err != nil {
		return reading, fmt.Errorf("failed to publish to %s: %w", p.PubTopic, err)
	}

	return reading, nil
}
