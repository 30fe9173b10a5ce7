package sensor

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/host"
)

// HostProvider reads temperatures from the host's thermal sensors.
type HostProvider struct {
	sensorKey string // Only use the sensor with this key; empty means the first one reported
	read      func(ctx context.Context) ([]host.TemperatureStat, error)
}

// NewHostProvider creates a HostProvider that reads through gopsutil.
func NewHostProvider(sensorKey string) *HostProvider {
	return &HostProvider{
		sensorKey: sensorKey,
		read:      host.SensorsTemperaturesWithContext,
	}
}

// Sample returns the temperature of the configured host sensor.
func (h *HostProvider) Sample(ctx context.Context) (float64, error) {
	stats, err := h.read(ctx)
	// gopsutil reports partial results together with warnings
	if err != nil && len(stats) == 0 {
		return 0, fmt.Errorf("failed to read host sensors: %w", err)
	}

	for _, stat := range stats {
		if h.sensorKey == "" || stat.SensorKey == h.sensorKey {
			return stat.Temperature, nil
		}
	}

	if h.sensorKey != "" {
		return 0, fmt.Errorf("%w: sensor %q not found", ErrNoReading, h.sensorKey)
	}
	return 0, ErrNoReading
}

// Close is a no-op; host sensors hold no resources.
func (h *HostProvider) Close() error {
	return nil
}
