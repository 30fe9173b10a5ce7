package actuator

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	gpiocdev "github.com/temoto/gpio-cdev-go"
)

const consumerLabel = "thermo-agent"

// CdevActuator drives a single line through the Linux GPIO character device.
type CdevActuator struct {
	chip  gpiocdev.Chiper
	lines gpiocdev.Lineser
	set   gpiocdev.LineSetFunc

	mu sync.Mutex
	on bool
}

// ParseCdevPin splits "gpiochip0:17" or "/dev/gpiochip0:17" into the chip
// device path and the line offset.
func ParseCdevPin(pin string) (string, uint32, error) {
	chip, line, found := strings.Cut(pin, ":")
	if !found || chip == "" {
		return "", 0, fmt.Errorf("cdev pin %q is not of the form chip:line", pin)
	}

	offset, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("cdev pin %q has an invalid line: %w", pin, err)
	}

	if !strings.HasPrefix(chip, "/") {
		chip = "/dev/" + chip
	}
	return chip, uint32(offset), nil
}

// OpenCdevActuator opens the chip named in pin and requests the line as output.
func OpenCdevActuator(pin string) (*CdevActuator, error) {
	path, line, err := ParseCdevPin(pin)
	if err != nil {
		return nil, err
	}

	chip, err := gpiocdev.Open(path, consumerLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	a, err := NewCdevActuator(chip, line)
	if err != nil {
		chip.Close() //nolint:errcheck
		return nil, err
	}
	return a, nil
}

// NewCdevActuator requests line on an open chip and drives it low.
func NewCdevActuator(chip gpiocdev.Chiper, line uint32) (*CdevActuator, error) {
	lines, err := chip.OpenLines(gpiocdev.GPIOHANDLE_REQUEST_OUTPUT, consumerLabel, line)
	if err != nil {
		return nil, fmt.Errorf("failed to request line %d: %w", line, err)
	}

	a := &CdevActuator{
		chip:  chip,
		lines: lines,
		set:   lines.SetFunc(line),
	}
	if err := a.SetState(false); err != nil {
		lines.Close() //nolint:errcheck
		return nil, err
	}
	return a, nil
}

// SetState writes the line value.
func (a *CdevActuator) SetState(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var value byte
	if on {
		value = 1
	}
	a.set(value)
	if err := a.lines.Flush(); err != nil {
		return fmt.Errorf("failed to flush gpio line: %w", err)
	}
	a.on = on
	return nil
}

// State reports the last written state.
func (a *CdevActuator) State() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.on
}

// Close drives the line low and releases the line and the chip.
func (a *CdevActuator) Close() error {
	err := a.SetState(false)
	if closeErr := a.lines.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if closeErr := a.chip.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
