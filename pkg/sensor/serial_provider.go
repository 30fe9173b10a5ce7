package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Mode selects how a serial line is interpreted.
type Mode string

const (
	ModeCelsius Mode = "celsius" // each line is a temperature in °C
	ModeADC     Mode = "adc"     // each line is a raw 16-bit ADC count
)

// ParseMode validates a configured serial mode.
func ParseMode(mode string) (Mode, error) {
	switch Mode(mode) {
	case ModeCelsius, ModeADC:
		return Mode(mode), nil
	default:
		return "", fmt.Errorf("unknown serial sensor mode %q", mode)
	}
}

// SerialProvider reads newline-terminated temperature lines from a device
// connected via serial port.
type SerialProvider struct {
	mode Mode

	mu      sync.Mutex
	port    io.ReadCloser
	reader  *bufio.Reader
	pending string // unterminated fragment left by a read timeout
}

// maxLineLength caps a buffered fragment; anything longer is line noise.
const maxLineLength = 64

// OpenSerialProvider opens the serial port and returns a provider reading from it.
func OpenSerialProvider(port string, baudRate int, mode Mode, interval time.Duration) (*SerialProvider, error) {
	c := &serial.Config{Name: port, Baud: baudRate, ReadTimeout: readTimeout(interval)}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return NewSerialProvider(s, mode), nil
}

// NewSerialProvider wraps an already open device.
func NewSerialProvider(port io.ReadCloser, mode Mode) *SerialProvider {
	return &SerialProvider{
		mode:   mode,
		port:   port,
		reader: bufio.NewReader(port),
	}
}

// Sample reads the next line from the device and converts it to °C.
// Blank lines are skipped. A line cut short by the read timeout is kept
// and completed by a later call; until then ErrNoReading is returned.
func (s *SerialProvider) Sample(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		chunk, err := s.reader.ReadString('\n')
		s.pending += chunk

		if strings.HasSuffix(s.pending, "\n") {
			line := strings.TrimSpace(s.pending)
			s.pending = ""
			if line == "" {
				continue
			}
			return s.parse(line)
		}

		if len(s.pending) > maxLineLength {
			s.pending = ""
			return 0, fmt.Errorf("serial line exceeds %d bytes without a terminator", maxLineLength)
		}

		if err == io.EOF {
			return 0, ErrNoReading
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read serial sensor: %w", err)
		}
	}
}

func (s *SerialProvider) parse(line string) (float64, error) {
	switch s.mode {
	case ModeADC:
		raw, err := strconv.ParseUint(line, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid ADC value %q: %w", line, err)
		}
		return ADCToCelsius(uint16(raw)), nil
	default:
		temperature, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid temperature %q: %w", line, err)
		}
		return temperature, nil
	}
}

// Close releases the serial port.
func (s *SerialProvider) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
