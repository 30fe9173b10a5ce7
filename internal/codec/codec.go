// Package codec converts readings to and from their wire representation.
//
// Two formats exist: a delimited text line ("pico-1,23.47") and a compact
// protobuf-framed binary record that also carries the encoder's local time of
// day. Both decode into the same models.Reading so the aggregator never looks at
// raw bytes.
package codec

import (
	"errors"
	"fmt"

	"github.com/benmeehan/thermo-agent/internal/models"
	"github.com/benmeehan/thermo-agent/pkg/clock"
)

const (
	FormatText   = "text"
	FormatBinary = "binary"
)

var (
	// ErrMalformed is returned by Decode for any payload that does not parse.
	ErrMalformed = errors.New("malformed payload")

	// ErrInvalidReading is returned by Encode when the reading cannot be represented.
	ErrInvalidReading = errors.New("invalid reading")
)

// Codec encodes readings for the bus and decodes them back.
type Codec interface {
	Name() string
	Encode(reading models.Reading) ([]byte, error)
	Decode(payload []byte) (models.Reading, error)
}

// New returns the codec for the given format name. The clock is only used by
// the binary format.
func New(format string, clk clock.Clock) (Codec, error) {
	switch format {
	case FormatText, "":
		return NewTextCodec(), nil
	case FormatBinary:
		if clk == nil {
			clk = clock.NewSystemClock()
		}
		return NewBinaryCodec(clk), nil
	default:
		return nil, fmt.Errorf("unknown codec format %q", format)
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
