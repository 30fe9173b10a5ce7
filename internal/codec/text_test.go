package codec_test

import (
	"math"
	"testing"

	"github.com/benmeehan/thermo-agent/internal/codec"
	"github.com/benmeehan/thermo-agent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextCodec_Encode(t *testing.T) {
	c := codec.NewTextCodec()

	payload, err := c.Encode(models.Reading{PublisherID: "pico-1", Temperature: 23.4712})
	require.NoError(t, err)
	assert.Equal(t, "pico-1,23.47", string(payload))

	payload, err = c.Encode(models.Reading{PublisherID: "pico-2", Temperature: -4})
	require.NoError(t, err)
	assert.Equal(t, "pico-2,-4.00", string(payload))
}

func TestTextCodec_EncodeRejectsUnrepresentableIDs(t *testing.T) {
	c := codec.NewTextCodec()

	_, err := c.Encode(models.Reading{PublisherID: "", Temperature: 1})
	assert.ErrorIs(t, err, codec.ErrInvalidReading)

	_, err = c.Encode(models.Reading{PublisherID: "a,b", Temperature: 1})
	assert.ErrorIs(t, err, codec.ErrInvalidReading)
}

func TestTextCodec_RoundTrip(t *testing.T) {
	c := codec.NewTextCodec()

	for _, r := range []models.Reading{
		{PublisherID: "pico-1", Temperature: 23.47},
		{PublisherID: "sensor node", Temperature: -12.5},
		{PublisherID: "x", Temperature: 0},
	} {
		payload, err := c.Encode(r)
		require.NoError(t, err)

		got, err := c.Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, r.PublisherID, got.PublisherID)
		assert.Equal(t, r.Temperature, got.Temperature)
		assert.Nil(t, got.Time)
	}
}

func TestTextCodec_DecodeSplitsOnFirstComma(t *testing.T) {
	c := codec.NewTextCodec()

	_, err := c.Decode([]byte("pico-1,23.4,7"))
	assert.ErrorIs(t, err, codec.ErrMalformed)

	got, err := c.Decode([]byte("pico-1, 21.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 21.5, got.Temperature)
}

func TestTextCodec_DecodeMalformed(t *testing.T) {
	c := codec.NewTextCodec()

	cases := map[string]string{
		"empty":         "",
		"no comma":      "pico-1 23.47",
		"empty id":      ",23.47",
		"not a number":  "pico-1,warm",
		"empty number":  "pico-1,",
		"trailing junk": "pico-1,23.47C",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode([]byte(payload))
			assert.ErrorIs(t, err, codec.ErrMalformed)
		})
	}
}

func TestTextCodec_DecodePassesNonFinite(t *testing.T) {
	c := codec.NewTextCodec()

	got, err := c.Decode([]byte("pico-1,nan"))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Temperature))

	got, err = c.Decode([]byte("pico-1,1e400"))
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.Temperature, 1))

	payload, err := c.Encode(models.Reading{PublisherID: "pico-1", Temperature: math.Inf(-1)})
	require.NoError(t, err)
	got, err = c.Decode(payload)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.Temperature, -1))
}
