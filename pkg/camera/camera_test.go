package camera

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	raw := []byte(`{
		"make": "ACME",
		"model": "One",
		"sensorArrangment": "bggr",
		"blackLevel": [64, 64, 64, 64],
		"whiteLevel": 1023
	}`)

	m, err := ParseMetadata(raw)
	require.NoError(t, err)
	require.Equal(t, "ACME", m.Make)
	require.Equal(t, uint16(1023), m.WhiteLevel)
	require.Equal(t, [4]byte{2, 1, 1, 0}, m.CFAPattern())

	_, err = ParseMetadata([]byte("{"))
	require.ErrorIs(t, err, ErrParse)
}

func TestParseFrameMetadata(t *testing.T) {
	raw := []byte(`{
		"timestamp": 1000000000,
		"width": 4000,
		"height": 3000,
		"exposureTime": 10000000,
		"iso": 100
	}`)

	m, err := ParseFrameMetadata(raw)
	require.NoError(t, err)
	require.Equal(t, int64(1000000000), m.Timestamp)
	require.Equal(t, 4000, m.Width)

	_, err = ParseFrameMetadata([]byte(`{"width": 0, "height": 10}`))
	require.ErrorIs(t, err, ErrParse)

	_, err = ParseFrameMetadata([]byte("x"))
	require.ErrorIs(t, err, ErrParse)
}
