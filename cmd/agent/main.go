package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/benmeehan/thermo-agent/internal/codec"
	"github.com/benmeehan/thermo-agent/internal/constants"
	"github.com/benmeehan/thermo-agent/internal/identity"
	"github.com/benmeehan/thermo-agent/internal/metrics"
	"github.com/benmeehan/thermo-agent/internal/service_registry"
	"github.com/benmeehan/thermo-agent/internal/transport"
	"github.com/benmeehan/thermo-agent/internal/utils"
	"github.com/benmeehan/thermo-agent/pkg/clock"
	"github.com/benmeehan/thermo-agent/pkg/file"
)

func main() {
	configPath := flag.String("config", constants.DefaultConfigPath, "Path to the YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a configuration file with defaults to -config and exit")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	if *initConfig {
		config := utils.DefaultConfig()
		config.ApplyDefaults()
		if err := fileClient.WriteYamlFile(*configPath, config); err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("Failed to write default configuration")
		}
		logger.Info().Str("path", *configPath).Msg("Default configuration written")
		return
	}

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	configured, err := utils.NewLogger(config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	logger = configured
	log.Logger = logger

	// Role must be settled before touching the bus
	role, err := utils.ResolveRole(config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Refusing to start")
	}
	logger = logger.With().Str("role", role.Name()).Logger()

	clientID, err := identity.ClientID(role, config.Bus.ClientID)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to derive client id")
	}
	logger.Info().Str("client_id", clientID).Msg("Using bus client id")

	payloadCodec, err := codec.New(config.Codec, clock.NewSystemClock())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create payload codec")
	}

	promRegistry := prometheus.NewRegistry()
	agentMetrics := metrics.NewMetrics(promRegistry)
	if config.Metrics.Enabled {
		promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			metrics.NewHostCollector("/", logger),
		)
	}

	// Initialize the shared bus connection
	bus, err := transport.Dial(config, clientID, func(msg transport.Message) {
		agentMetrics.MessagesDropped.Inc()
		logger.Warn().Str("topic", msg.Topic).Msg("Inbox full, dropping message")
	}, fileClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("broker", config.Bus.Broker).Msg("Failed to connect to bus")
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(bus, payloadCodec, agentMetrics, promRegistry,
		clock.NewSystemClock(), logger)

	if err := serviceRegistry.RegisterServices(config, role); err != nil {
		shutdown(serviceRegistry, bus, logger)
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	if err := serviceRegistry.StartServices(); err != nil {
		shutdown(serviceRegistry, bus, logger)
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stopCh

	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Some services failed to stop")
	}
	shutdown(serviceRegistry, bus, logger)
}

// shutdown releases the hardware collaborators and then the bus connection.
func shutdown(serviceRegistry *service_registry.ServiceRegistry, bus transport.Transport, logger zerolog.Logger) {
	if err := serviceRegistry.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to release collaborators")
	}
	if err := bus.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close bus connection")
	}
}
