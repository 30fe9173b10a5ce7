package service_registry

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/benmeehan/thermo-agent/internal/codec"
	"github.com/benmeehan/thermo-agent/internal/metrics"
	"github.com/benmeehan/thermo-agent/internal/models"
	"github.com/benmeehan/thermo-agent/internal/registry"
	"github.com/benmeehan/thermo-agent/internal/services"
	"github.com/benmeehan/thermo-agent/internal/state_managers"
	"github.com/benmeehan/thermo-agent/internal/transport"
	"github.com/benmeehan/thermo-agent/internal/utils"
	"github.com/benmeehan/thermo-agent/pkg/actuator"
	"github.com/benmeehan/thermo-agent/pkg/clock"
	"github.com/benmeehan/thermo-agent/pkg/sensor"
)

// ServiceRegistry manages the lifecycle of the services run for a role.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	closers     []io.Closer                 // Collaborators released by Close, in reverse order

	transport transport.Transport
	codec     codec.Codec
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	clock     clock.Clock
	Logger    zerolog.Logger

	newSensor   func(opts sensor.Options) (sensor.Sensor, error)
	newActuator func(driver, pin string, logger zerolog.Logger) (actuator.Actuator, error)
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(transport transport.Transport, codec codec.Codec, metrics *metrics.Metrics,
	gatherer prometheus.Gatherer, clk clock.Clock, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:    make(map[string]registry.Service),
		transport:   transport,
		codec:       codec,
		metrics:     metrics,
		gatherer:    gatherer,
		clock:       clk,
		Logger:      logger,
		newSensor:   sensor.New,
		newActuator: actuator.New,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Services returns the registered service names in start order.
func (sr *ServiceRegistry) Services() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// Close releases the sensor or actuator opened by RegisterServices.
func (sr *ServiceRegistry) Close() error {
	var closeErrors []error
	for i := len(sr.closers) - 1; i >= 0; i-- {
		if err := sr.closers[i].Close(); err != nil {
			closeErrors = append(closeErrors, err)
		}
	}
	sr.closers = nil
	return errors.Join(closeErrors...)
}

// RegisterServices builds and registers the services for the resolved role.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, role models.Role) error {
	if role == nil {
		return errors.New("no role resolved")
	}

	_, isPublisher := role.(models.PublisherRole)
	_, isAggregator := role.(models.AggregatorRole)

	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "metrics",
			enabled: config.Metrics.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewMetricsService(config.Metrics.Addr, sr.gatherer, sr.Logger), nil
			},
		},
		{
			name:    "publisher",
			enabled: isPublisher,
			constructor: func() (registry.Service, error) {
				s, err := sr.newSensor(sensor.Options{
					Driver:    config.Publisher.Sensor.Driver,
					SensorKey: config.Publisher.Sensor.SensorKey,
					Port:      config.Publisher.Sensor.Port,
					BaudRate:  config.Publisher.Sensor.BaudRate,
					Mode:      config.Publisher.Sensor.Mode,
					Interval:  config.Publisher.Interval,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to open sensor: %w", err)
				}
				sr.closers = append(sr.closers, s)

				return services.NewPublisherService(
					config.Topic,
					role.(models.PublisherRole).Identity,
					config.Publisher.Interval,
					s,
					sr.codec,
					sr.transport,
					sr.metrics,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "aggregator",
			enabled: isAggregator,
			constructor: func() (registry.Service, error) {
				a, err := sr.newActuator(config.Aggregator.ActuatorDriver, config.Aggregator.ActuatorPin, sr.Logger)
				if err != nil {
					return nil, fmt.Errorf("failed to open actuator: %w", err)
				}
				sr.closers = append(sr.closers, a)

				return services.NewAggregatorService(
					config.Topic,
					services.AggregatorOptions{
						Threshold:       config.Aggregator.Threshold,
						RetryDelay:      config.Aggregator.RetryDelay,
						RejectNonFinite: config.Aggregator.RejectNonFinite,
					},
					sr.transport,
					sr.codec,
					state_managers.NewPublisherStateManager(config.Aggregator.Timeout, sr.Logger),
					a,
					sr.clock,
					sr.metrics,
					sr.Logger,
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Str("role", role.Name()).Msgf("Registered services in order: %v", registeredServices)
	return nil
}
