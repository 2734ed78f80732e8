package capture

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackPixels(t *testing.T) {
	t.Run("12bit", func(t *testing.T) {
		packed, err := PackPixels([]uint16{0xABC, 0x123}, 12)
		require.NoError(t, err)
		require.Equal(t, []byte{0xab, 0xc1, 0x23}, packed)

		pixels, err := UnpackPixels(packed, 2, 12)
		require.NoError(t, err)
		require.Equal(t, []uint16{0xABC, 0x123}, pixels)
	})
	t.Run("10bitRoundTrip", func(t *testing.T) {
		in := []uint16{0, 1023, 512, 7, 1000}
		packed, err := PackPixels(in, 10)
		require.NoError(t, err)
		require.Equal(t, packedSize(len(in), 10), len(packed))

		out, err := UnpackPixels(packed, len(in), 10)
		require.NoError(t, err)
		require.Equal(t, in, out)
	})
	t.Run("outOfRange", func(t *testing.T) {
		_, err := PackPixels([]uint16{1024}, 10)
		require.ErrorIs(t, err, ErrUnsupportedDepth)
	})
}

func TestWriter(t *testing.T) {
	buf := &bytes.Buffer{}

	header := Header{
		Width:           2,
		Height:          1,
		PixelBits:       16,
		AudioChannels:   2,
		AudioSampleRate: 48000,
		Meta:            []byte(`{}`),
	}

	w, err := NewWriter(buf, header)
	require.NoError(t, err)

	err = w.WriteFrame(1000000000, []byte("m"), []uint16{0x0102, 0x0304})
	require.NoError(t, err)

	err = w.WriteAudio(2000000000, []int16{5, 6})
	require.NoError(t, err)

	expected := []byte{
		'M', 'C', 'A', 'P',
		0,    // Version.
		0, 2, // Width.
		0, 1, // Height.
		16,   // Pixel bits.
		2,    // Audio channels.
		0, 0, 0xbb, 0x80, // Sample rate.
		0, 2, // Meta size.
		'{', '}',

		// Frame record.
		0,                            // Kind.
		0, 0, 0, 0, 0x3b, 0x9a, 0xca, 0, // Timestamp.
		0, 1, // Meta size.
		'm',
		0, 0, 0, 4, // Data size.
		0x01, 0x02, 0x03, 0x04, // Packed pixels.

		// Audio record.
		1,                               // Kind.
		0, 0, 0, 0, 0x77, 0x35, 0x94, 0, // Timestamp.
		0, 0, 0, 2, // Sample count.
		0, 5, 0, 6, // Samples.
	}
	require.Equal(t, expected, buf.Bytes())
}

func writeTestCapture(t *testing.T, header Header, write func(*Writer)) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.mcap")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	w, err := NewWriter(file, header)
	require.NoError(t, err)
	write(w)

	return path
}

func TestDecoder(t *testing.T) {
	header := Header{
		Width:           2,
		Height:          2,
		PixelBits:       12,
		AudioChannels:   2,
		AudioSampleRate: 48000,
		Meta:            []byte(`{"make":"ACME"}`),
	}
	pixels := []uint16{0, 100, 200, 4095}

	path := writeTestCapture(t, header, func(w *Writer) {
		require.NoError(t, w.WriteFrame(2000, []byte(`{"width":2}`), pixels))
		require.NoError(t, w.WriteFrame(1000, []byte(`{"width":2}`), pixels))
		require.NoError(t, w.WriteAudio(1500, []int16{1, -1, 2, -2}))
	})

	d, err := NewDecoder(path)
	require.NoError(t, err)
	defer d.Close()

	frames, err := d.Frames()
	require.NoError(t, err)
	require.Equal(t, []int64{2000, 1000}, frames)

	raw, meta, err := d.LoadFrame(1000)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"width":2}`), meta)
	require.Equal(t, []byte{0, 0, 100, 0, 200, 0, 0xff, 0x0f}, raw)

	_, _, err = d.LoadFrame(3000)
	require.ErrorIs(t, err, ErrFrameNotFound)

	chunks, err := d.LoadAudio()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, int64(1500), chunks[0].Timestamp)
	require.Equal(t, []int16{1, -1, 2, -2}, chunks[0].Samples)

	require.Equal(t, 48000, d.AudioSampleRateHz())
	require.Equal(t, 2, d.NumAudioChannels())
	require.Equal(t, []byte(`{"make":"ACME"}`), d.ContainerMetadata())
}

func TestDecoderTruncated(t *testing.T) {
	header := Header{
		Width:     2,
		Height:    1,
		PixelBits: 16,
	}
	pixels := []uint16{1, 2}

	path := writeTestCapture(t, header, func(w *Writer) {
		require.NoError(t, w.WriteFrame(1000, nil, pixels))
		require.NoError(t, w.WriteFrame(2000, nil, pixels))
	})

	// Cut into the second frame's data.
	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, stat.Size()-2))

	d, err := NewDecoder(path)
	require.NoError(t, err)
	defer d.Close()

	frames, err := d.Frames()
	require.NoError(t, err)
	require.Equal(t, []int64{1000}, frames)
}

func TestDecoderBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.mcap")
	require.NoError(t, os.WriteFile(path, make([]byte, 32), 0o600))

	_, err := NewDecoder(path)
	require.ErrorIs(t, err, ErrBadMagic)
}
