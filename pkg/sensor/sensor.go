package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoReading is returned when a sensor produced no usable temperature.
var ErrNoReading = errors.New("no temperature reading available")

// Sensor is the source of a publisher's temperature readings.
type Sensor interface {
	// Sample returns the current temperature in degrees Celsius.
	Sample(ctx context.Context) (float64, error)
	Close() error
}

// Options selects and configures a sensor driver.
type Options struct {
	Driver    string        // host or serial
	SensorKey string        // host: sensor key filter, empty for the first sensor
	Port      string        // serial: device path
	BaudRate  int           // serial: baud rate
	Mode      string        // serial: celsius or adc
	Interval  time.Duration // sampling interval, bounds a serial read
}

// New builds the sensor selected by opts.Driver.
func New(opts Options) (Sensor, error) {
	switch opts.Driver {
	case "host":
		return NewHostProvider(opts.SensorKey), nil
	case "serial":
		mode, err := ParseMode(opts.Mode)
		if err != nil {
			return nil, err
		}
		return OpenSerialProvider(opts.Port, opts.BaudRate, mode, opts.Interval)
	default:
		return nil, fmt.Errorf("unknown sensor driver %q", opts.Driver)
	}
}

// readTimeout bounds a single serial read so a silent device cannot stall a tick.
func readTimeout(interval time.Duration) time.Duration {
	if interval <= 0 {
		return time.Second
	}
	return interval
}
