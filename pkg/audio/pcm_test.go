package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodePCM16(t *testing.T) {
	out := EncodePCM16([]int16{0x0102, -2})
	require.Equal(t, []byte{0x02, 0x01, 0xfe, 0xff}, out)
}

func TestEncodePCM(t *testing.T) {
	t.Run("16bit", func(t *testing.T) {
		out, err := EncodePCM([]float32{258, -2}, 16)
		require.NoError(t, err)
		require.Equal(t, []byte{0x02, 0x01, 0xfe, 0xff}, out)
	})
	t.Run("24bit", func(t *testing.T) {
		out, err := EncodePCM([]float32{1, -1, 0}, 24)
		require.NoError(t, err)
		require.Equal(t, []byte{
			0xff, 0xff, 0x7f, // 8388607.
			0x01, 0x00, 0x80, // -8388607.
			0x00, 0x00, 0x00,
		}, out)
	})
	t.Run("32bit", func(t *testing.T) {
		out, err := EncodePCM([]float32{1, 0}, 32)
		require.NoError(t, err)
		require.Equal(t, []byte{
			0xff, 0xff, 0xff, 0x7f, // 2147483647.
			0x00, 0x00, 0x00, 0x00,
		}, out)
	})
	t.Run("clipping", func(t *testing.T) {
		out, err := EncodePCM([]float32{1.5}, 32)
		require.NoError(t, err)
		require.Equal(t, []byte{0xff, 0xff, 0xff, 0x7f}, out)
	})
	t.Run("unsupported", func(t *testing.T) {
		_, err := EncodePCM(nil, 8)
		require.ErrorIs(t, err, ErrUnsupportedBitDepth)
	})
}

func TestDecodePCM(t *testing.T) {
	t.Run("16bit", func(t *testing.T) {
		out, err := DecodePCM([]byte{0x02, 0x01, 0xfe, 0xff}, 16)
		require.NoError(t, err)
		require.Equal(t, []float32{258, -2}, out)
	})
	t.Run("24bitRoundTrip", func(t *testing.T) {
		in := []float32{0.5, -0.25, 0}
		encoded, err := EncodePCM(in, 24)
		require.NoError(t, err)
		decoded, err := DecodePCM(encoded, 24)
		require.NoError(t, err)
		for i := range in {
			require.InDelta(t, in[i], decoded[i], 1e-4)
		}
	})
	t.Run("32bitRoundTrip", func(t *testing.T) {
		in := []float32{0.5, -0.25, 0.125}
		encoded, err := EncodePCM(in, 32)
		require.NoError(t, err)
		decoded, err := DecodePCM(encoded, 32)
		require.NoError(t, err)
		for i := range in {
			require.InDelta(t, in[i], decoded[i], 1e-6)
		}
	})
	t.Run("unsupported", func(t *testing.T) {
		_, err := DecodePCM(nil, 12)
		require.ErrorIs(t, err, ErrUnsupportedBitDepth)
	})
}
