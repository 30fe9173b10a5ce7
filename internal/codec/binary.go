package codec

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/benmeehan/thermo-agent/internal/models"
	"github.com/benmeehan/thermo-agent/pkg/clock"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the reading record:
//
//	message Reading   { string publisher_id = 1; double temperature = 2; TimeOfDay time = 3; }
//	message TimeOfDay { uint32 hour = 1; uint32 minute = 2; uint32 second = 3; }
const (
	fieldPublisherID protowire.Number = 1
	fieldTemperature protowire.Number = 2
	fieldTime        protowire.Number = 3

	fieldHour   protowire.Number = 1
	fieldMinute protowire.Number = 2
	fieldSecond protowire.Number = 3
)

// BinaryCodec implements the protobuf-framed record format. The time field is
// stamped from the encoder's clock, not from the reading.
type BinaryCodec struct {
	clock clock.Clock
}

// NewBinaryCodec creates a BinaryCodec stamping records with clk.
func NewBinaryCodec(clk clock.Clock) *BinaryCodec {
	return &BinaryCodec{clock: clk}
}

func (c *BinaryCodec) Name() string {
	return FormatBinary
}

// Encode writes every field explicitly, including zero values, so the decoder
// can insist on their presence.
func (c *BinaryCodec) Encode(reading models.Reading) ([]byte, error) {
	if reading.PublisherID == "" {
		return nil, fmt.Errorf("%w: empty publisher id", ErrInvalidReading)
	}
	if !utf8.ValidString(reading.PublisherID) {
		return nil, fmt.Errorf("%w: publisher id is not valid UTF-8", ErrInvalidReading)
	}

	local := c.clock.LocalTime()
	var tod []byte
	tod = protowire.AppendTag(tod, fieldHour, protowire.VarintType)
	tod = protowire.AppendVarint(tod, uint64(local.Hour))
	tod = protowire.AppendTag(tod, fieldMinute, protowire.VarintType)
	tod = protowire.AppendVarint(tod, uint64(local.Minute))
	tod = protowire.AppendTag(tod, fieldSecond, protowire.VarintType)
	tod = protowire.AppendVarint(tod, uint64(local.Second))

	buf := make([]byte, 0, len(reading.PublisherID)+len(tod)+16)
	buf = protowire.AppendTag(buf, fieldPublisherID, protowire.BytesType)
	buf = protowire.AppendString(buf, reading.PublisherID)
	buf = protowire.AppendTag(buf, fieldTemperature, protowire.Fixed64Type)
	buf = protowire.AppendFixed64(buf, math.Float64bits(reading.Temperature))
	buf = protowire.AppendTag(buf, fieldTime, protowire.BytesType)
	buf = protowire.AppendBytes(buf, tod)

	return buf, nil
}

// Decode parses a record. Unknown well-formed fields are skipped; truncation,
// invalid tags, wire-type mismatches and missing fields are ErrMalformed.
func (c *BinaryCodec) Decode(payload []byte) (models.Reading, error) {
	var (
		reading                    models.Reading
		haveID, haveTemp, haveTime bool
	)

	b := payload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return models.Reading{}, malformed("tag: %v", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldPublisherID:
			if typ != protowire.BytesType {
				return models.Reading{}, malformed("publisher_id has wire type %d", typ)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return models.Reading{}, malformed("publisher_id: %v", protowire.ParseError(n))
			}
			if !utf8.Valid(v) {
				return models.Reading{}, malformed("publisher_id is not valid UTF-8")
			}
			reading.PublisherID = string(v)
			haveID = true
			b = b[n:]

		case fieldTemperature:
			if typ != protowire.Fixed64Type {
				return models.Reading{}, malformed("temperature has wire type %d", typ)
			}
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return models.Reading{}, malformed("temperature: %v", protowire.ParseError(n))
			}
			reading.Temperature = math.Float64frombits(v)
			haveTemp = true
			b = b[n:]

		case fieldTime:
			if typ != protowire.BytesType {
				return models.Reading{}, malformed("time has wire type %d", typ)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return models.Reading{}, malformed("time: %v", protowire.ParseError(n))
			}
			tod, err := decodeTimeOfDay(v)
			if err != nil {
				return models.Reading{}, err
			}
			reading.Time = &tod
			haveTime = true
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return models.Reading{}, malformed("field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	switch {
	case !haveID || reading.PublisherID == "":
		return models.Reading{}, malformed("missing publisher_id")
	case !haveTemp:
		return models.Reading{}, malformed("missing temperature")
	case !haveTime:
		return models.Reading{}, malformed("missing time")
	}

	return reading, nil
}

func decodeTimeOfDay(b []byte) (models.TimeOfDay, error) {
	var tod models.TimeOfDay
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return models.TimeOfDay{}, malformed("time tag: %v", protowire.ParseError(n))
		}
		b = b[n:]

		var dst *uint32
		switch num {
		case fieldHour:
			dst = &tod.Hour
		case fieldMinute:
			dst = &tod.Minute
		case fieldSecond:
			dst = &tod.Second
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return models.TimeOfDay{}, malformed("time field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		if typ != protowire.VarintType {
			return models.TimeOfDay{}, malformed("time field %d has wire type %d", num, typ)
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return models.TimeOfDay{}, malformed("time field %d: %v", num, protowire.ParseError(n))
		}
		if v > math.MaxUint32 {
			return models.TimeOfDay{}, malformed("time field %d overflows uint32", num)
		}
		*dst = uint32(v)
		b = b[n:]
	}

	if tod.Hour > 23 || tod.Minute > 59 || tod.Second > 61 {
		return models.TimeOfDay{}, malformed("time %s out of range", tod)
	}
	return tod, nil
}
