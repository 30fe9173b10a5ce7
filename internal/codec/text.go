package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/benmeehan/thermo-agent/internal/models"
)

// TextCodec implements the "<publisher_id>,<temperature>" line format.
type TextCodec struct{}

// NewTextCodec creates a TextCodec.
func NewTextCodec() *TextCodec {
	return &TextCodec{}
}

func (c *TextCodec) Name() string {
	return FormatText
}

// Encode renders the reading with exactly two fractional digits.
func (c *TextCodec) Encode(reading models.Reading) ([]byte, error) {
	if reading.PublisherID == "" {
		return nil, fmt.Errorf("%w: empty publisher id", ErrInvalidReading)
	}
	if strings.Contains(reading.PublisherID, ",") {
		return nil, fmt.Errorf("%w: publisher id %q contains a comma", ErrInvalidReading, reading.PublisherID)
	}
	return []byte(reading.PublisherID + "," + strconv.FormatFloat(reading.Temperature, 'f', 2, 64)), nil
}

// Decode splits on the first comma and parses the remainder as a float.
// Non-finite values are passed through.
func (c *TextCodec) Decode(payload []byte) (models.Reading, error) {
	id, rest, found := bytes.Cut(payload, []byte{','})
	if !found {
		return models.Reading{}, malformed("missing ',' separator")
	}
	if len(id) == 0 {
		return models.Reading{}, malformed("empty publisher id")
	}

	raw := strings.TrimSpace(string(rest))
	temp, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// out-of-range literals still yield ±Inf, which is passed through like NaN
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return models.Reading{}, malformed("temperature %q: %v", raw, err)
		}
	}

	return models.Reading{PublisherID: string(id), Temperature: temp}, nil
}
