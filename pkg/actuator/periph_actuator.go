package actuator

import (
	"fmt"
	"sync"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

type outputPin interface {
	Out(l gpio.Level) error
}

// PeriphActuator drives a GPIO pin looked up by name in the periph registry,
// e.g. "GPIO17" or "15".
type PeriphActuator struct {
	pin outputPin

	mu sync.Mutex
	on bool
}

// OpenPeriphActuator initializes the host drivers and resolves the pin.
// The pin starts low.
func OpenPeriphActuator(name string) (*PeriphActuator, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}

	a := &PeriphActuator{pin: pin}
	if err := a.SetState(false); err != nil {
		return nil, err
	}
	return a, nil
}

// SetState drives the pin.
func (a *PeriphActuator) SetState(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := a.pin.Out(level); err != nil {
		return fmt.Errorf("failed to set pin %s: %w", level, err)
	}
	a.on = on
	return nil
}

// State reports the last written state.
func (a *PeriphActuator) State() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.on
}

// Close leaves the pin low.
func (a *PeriphActuator) Close() error {
	return a.SetState(false)
}
