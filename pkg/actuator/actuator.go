package actuator

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Actuator is the binary output driven by the aggregator.
type Actuator interface {
	// SetState drives the output high (on) or low (off).
	SetState(on bool) error
	// State reports the last state successfully written.
	State() bool
	Close() error
}

// New builds the actuator for pin using driver (periph, cdev or log).
func New(driver, pin string, logger zerolog.Logger) (Actuator, error) {
	switch driver {
	case "periph":
		return OpenPeriphActuator(pin)
	case "cdev":
		return OpenCdevActuator(pin)
	case "log":
		return NewLogActuator(pin, logger), nil
	default:
		return nil, fmt.Errorf("unknown actuator driver %q", driver)
	}
}
