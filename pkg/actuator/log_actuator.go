package actuator

import (
	"sync"

	"github.com/rs/zerolog"
)

// LogActuator only logs state changes. Useful on hosts without GPIO.
type LogActuator struct {
	pin    string
	logger zerolog.Logger

	mu sync.Mutex
	on bool
}

// NewLogActuator creates a LogActuator for the named pin.
func NewLogActuator(pin string, logger zerolog.Logger) *LogActuator {
	return &LogActuator{pin: pin, logger: logger}
}

// SetState records the state and logs when it changes.
func (a *LogActuator) SetState(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.on != on {
		a.logger.Info().Str("pin", a.pin).Bool("on", on).Msg("Actuator state changed")
	}
	a.on = on
	return nil
}

// State reports the last written state.
func (a *LogActuator) State() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.on
}

// Close turns the output off.
func (a *LogActuator) Close() error {
	return a.SetState(false)
}
