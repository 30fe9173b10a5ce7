package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/thermo-agent/internal/codec"
	"github.com/benmeehan/thermo-agent/internal/metrics"
	"github.com/benmeehan/thermo-agent/internal/policy"
	"github.com/benmeehan/thermo-agent/internal/state_managers"
	"github.com/benmeehan/thermo-agent/internal/transport"
	"github.com/benmeehan/thermo-agent/pkg/actuator"
	"github.com/benmeehan/thermo-agent/pkg/clock"
)

// AggregatorOptions tune the aggregator's decision loop.
type AggregatorOptions struct {
	Threshold       float64       // Actuator turns on when the average is strictly above this
	RetryDelay      time.Duration // Pause after a failed receive
	RejectNonFinite bool          // Discard NaN and ±Inf readings instead of folding them in
}

// AggregatorService receives readings from every publisher, keeps the
// per-publisher state table and drives the actuator from the live average.
type AggregatorService struct {
	subTopic string
	options  AggregatorOptions

	// Dependencies
	transport transport.Transport
	codec     codec.Codec
	state     *state_managers.PublisherStateManager
	actuator  actuator.Actuator
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	// mu serializes message handling so record, average, decide and the
	// actuator write happen as one step.
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAggregatorService initializes a new AggregatorService.
func NewAggregatorService(subTopic string, options AggregatorOptions, transport transport.Transport, codec codec.Codec,
	state *state_managers.PublisherStateManager, actuator actuator.Actuator, clk clock.Clock,
	metrics *metrics.Metrics, logger zerolog.Logger) *AggregatorService {

	if clk == nil {
		clk = clock.NewSystemClock()
	}

	state.OnEvict(func(string) {
		metrics.StaleEvictions.Inc()
	})

	return &AggregatorService{
		subTopic:  subTopic,
		options:   options,
		transport: transport,
		codec:     codec,
		state:     state,
		actuator:  actuator,
		clock:     clk,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start subscribes to the readings topic and launches the receive loop.
func (a *AggregatorService) Start() error {
	if a.ctx != nil {
		a.logger.Warn().Msg("AggregatorService is already running")
		return errors.New("aggregator service is already running")
	}

	a.logger.Info().Str("topic", a.subTopic).Msg("Starting AggregatorService and subscribing to topic")
	if err := a.transport.Subscribe(a.subTopic); err != nil {
		a.logger.Error().Err(err).Str("topic", a.subTopic).Msg("Failed to subscribe to topic")
		return err
	}

	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runReceiveLoop()
	}()

	a.logger.Info().
		Str("topic", a.subTopic).
		Float64("threshold", a.options.Threshold).
		Dur("timeout", a.state.Timeout()).
		Msg("AggregatorService started successfully")
	return nil
}

// Stop ends the receive loop and turns the actuator off.
func (a *AggregatorService) Stop() error {
	if a.ctx == nil {
		a.logger.Warn().Msg("AggregatorService is not running")
		return errors.New("aggregator service is not running")
	}

	a.cancel()
	a.wg.Wait()

	a.ctx = nil
	a.cancel = nil

	a.mu.Lock()
	a.applyActuator(false)
	a.mu.Unlock()

	a.logger.Info().Msg("AggregatorService stopped successfully")
	return nil
}

// runReceiveLoop fully handles each message before asking for the next one.
func (a *AggregatorService) runReceiveLoop() {
	for {
		msg, err := a.transport.Receive(a.ctx)
		if err != nil {
			if a.ctx.Err() != nil {
				a.logger.Info().Msg("AggregatorService stopping gracefully")
				return
			}
			if errors.Is(err, transport.ErrClosed) {
				a.logger.Warn().Msg("Transport closed, AggregatorService receive loop exiting")
				return
			}

			a.metrics.ReceiveErrors.Inc()
			a.logger.Error().Err(err).Dur("retry_delay", a.options.RetryDelay).Msg("Failed to receive message")

			select {
			case <-time.After(a.options.RetryDelay):
			case <-a.ctx.Done():
				a.logger.Info().Msg("AggregatorService stopping gracefully")
				return
			}
			continue
		}

		a.HandleMessage(msg)
	}
}

// HandleMessage decodes one inbound payload, folds it into the state table
// and drives the actuator from the resulting average. Malformed payloads are
// logged and discarded without touching the table.
func (a *AggregatorService) HandleMessage(msg transport.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics.MessagesReceived.Inc()

	reading, err := a.codec.Decode(msg.Payload)
	if err != nil {
		a.metrics.MessagesMalformed.Inc()
		a.logger.Warn().Err(err).Str("topic", msg.Topic).Int("size", len(msg.Payload)).Msg("Discarding malformed message")
		return
	}

	if a.options.RejectNonFinite && (math.IsNaN(reading.Temperature) || math.IsInf(reading.Temperature, 0)) {
		a.metrics.MessagesMalformed.Inc()
		a.logger.Warn().
			Str("publisher_id", reading.PublisherID).
			Float64("temperature", reading.Temperature).
			Msg("Discarding non-finite reading")
		return
	}

	event := a.logger.Debug().
		Str("publisher_id", reading.PublisherID).
		Float64("temperature", reading.Temperature)
	if reading.Time != nil {
		event = event.Str("time", reading.Time.String())
	}
	event.Msg("Reading received")

	now := a.clock.Now()
	a.state.Record(reading.PublisherID, reading.Temperature, now)
	average, ok := a.state.Average(now)

	a.metrics.LivePublishers.Set(float64(a.state.Len()))
	if ok {
		a.metrics.AverageCelsius.Set(average)
	} else {
		a.metrics.AverageCelsius.Set(math.NaN())
	}

	a.applyActuator(policy.Decide(average, ok, a.options.Threshold))
}

// applyActuator writes the state on every call and logs transitions.
func (a *AggregatorService) applyActuator(on bool) {
	previous := a.actuator.State()

	if err := a.actuator.SetState(on); err != nil {
		a.logger.Error().Err(err).Bool("actuator", on).Msg("Failed to set actuator state")
		return
	}
	a.metrics.SetActuator(on)

	if previous != on {
		a.logger.Info().Bool("actuator", on).Int("live_publishers", a.state.Len()).Msg("Actuator state changed")
	}
}
