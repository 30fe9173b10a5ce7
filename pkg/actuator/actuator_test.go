package actuator

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gpiocdev "github.com/temoto/gpio-cdev-go"
	gpio_mock "github.com/temoto/gpio-cdev-go/mock"
	"periph.io/x/periph/conn/gpio"
)

type fakePin struct {
	levels []gpio.Level
	err    error
}

func (f *fakePin) Out(l gpio.Level) error {
	if f.err != nil {
		return f.err
	}
	f.levels = append(f.levels, l)
	return nil
}

func TestPeriphActuatorSetState(t *testing.T) {
	pin := &fakePin{}
	a := &PeriphActuator{pin: pin}

	require.NoError(t, a.SetState(true))
	assert.True(t, a.State())
	require.NoError(t, a.SetState(true))
	require.NoError(t, a.Close())
	assert.False(t, a.State())

	assert.Equal(t, []gpio.Level{gpio.High, gpio.High, gpio.Low}, pin.levels)
}

func TestPeriphActuatorFailureKeepsState(t *testing.T) {
	pin := &fakePin{}
	a := &PeriphActuator{pin: pin}
	require.NoError(t, a.SetState(true))

	pin.err = errors.New("pin busy")
	assert.Error(t, a.SetState(false))
	assert.True(t, a.State())
}

func TestParseCdevPin(t *testing.T) {
	tests := []struct {
		pin       string
		chip      string
		line      uint32
		expectErr bool
	}{
		{pin: "gpiochip0:17", chip: "/dev/gpiochip0", line: 17},
		{pin: "/dev/gpiochip1:4", chip: "/dev/gpiochip1", line: 4},
		{pin: "GPIO17", expectErr: true},
		{pin: ":17", expectErr: true},
		{pin: "gpiochip0:x", expectErr: true},
		{pin: "gpiochip0:-1", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.pin, func(t *testing.T) {
			chip, line, err := ParseCdevPin(tt.pin)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.chip, chip)
			assert.Equal(t, tt.line, line)
		})
	}
}

func TestCdevActuator(t *testing.T) {
	var written []byte
	setter := gpiocdev.LineSetFunc(func(value byte) { written = append(written, value) })

	lines := new(gpio_mock.MockLines)
	lines.On("SetFunc", uint32(17)).Return(setter)
	lines.On("Flush").Return(nil)
	lines.On("Close").Return(nil)

	chip := new(gpio_mock.MockChip)
	chip.On("OpenLines", gpiocdev.GPIOHANDLE_REQUEST_OUTPUT, consumerLabel, uint32(17)).Return(lines, nil)
	chip.On("Close").Return(nil)

	a, err := NewCdevActuator(chip, 17)
	require.NoError(t, err)
	assert.False(t, a.State())

	require.NoError(t, a.SetState(true))
	assert.True(t, a.State())

	require.NoError(t, a.Close())
	assert.False(t, a.State())

	assert.Equal(t, []byte{0, 1, 0}, written)
	lines.AssertNumberOfCalls(t, "Flush", 3)
	lines.AssertCalled(t, "Close")
	chip.AssertCalled(t, "Close")
}

func TestCdevActuatorFlushError(t *testing.T) {
	lines := new(gpio_mock.MockLines)
	lines.On("SetFunc", uint32(4)).Return(gpiocdev.LineSetFunc(func(byte) {}))
	lines.On("Flush").Return(errors.New("ioctl failed"))
	lines.On("Close").Return(nil)

	chip := new(gpio_mock.MockChip)
	chip.On("OpenLines", mock.Anything, mock.Anything, uint32(4)).Return(lines, nil)

	_, err := NewCdevActuator(chip, 4)
	assert.Error(t, err)
	lines.AssertCalled(t, "Close")
}

func TestLogActuator(t *testing.T) {
	a := NewLogActuator("GPIO17", zerolog.Nop())

	assert.False(t, a.State())
	require.NoError(t, a.SetState(true))
	assert.True(t, a.State())
	require.NoError(t, a.Close())
	assert.False(t, a.State())
}

func TestNew(t *testing.T) {
	a, err := New("log", "GPIO17", zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogActuator{}, a)

	_, err = New("relay", "GPIO17", zerolog.Nop())
	assert.Error(t, err)

	// cdev pins are chip:line
	_, err = New("cdev", "GPIO17", zerolog.Nop())
	assert.Error(t, err)
}
