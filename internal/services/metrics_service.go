package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const metricsShutdownTimeout = 5 * time.Second

// MetricsService exposes the agent's Prometheus registry over HTTP.
type MetricsService struct {
	addr     string
	gatherer prometheus.Gatherer
	logger   zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewMetricsService initializes and returns a new instance of MetricsService.
func NewMetricsService(addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) *MetricsService {
	return &MetricsService{
		addr:     addr,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Start binds the listen address and serves /metrics and /healthz.
func (m *MetricsService) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		m.logger.Warn().Msg("MetricsService is already running")
		return errors.New("metrics service is already running")
	}

	listener, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	m.listener = listener
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	server := m.server
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Msg("Metrics server exited")
		}
	}()

	m.logger.Info().Str("addr", listener.Addr().String()).Msg("MetricsService started successfully")
	return nil
}

// Addr returns the bound address, or an empty string when not running.
func (m *MetricsService) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Stop shuts the HTTP server down.
func (m *MetricsService) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server == nil {
		m.logger.Warn().Msg("MetricsService is not running")
		return errors.New("metrics service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()

	err := m.server.Shutdown(ctx)
	m.wg.Wait()

	m.server = nil
	m.listener = nil

	if err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}

	m.logger.Info().Msg("MetricsService stopped successfully")
	return nil
}
