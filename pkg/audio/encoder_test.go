package audio

import (
	"encoding/binary"
	"testing"

	"mcrawfs/pkg/writerseeker"

	"github.com/stretchr/testify/require"
)

func TestEncoder(t *testing.T) {
	ws := &writerseeker.WriterSeeker{}

	enc, err := NewEncoder(ws, 2, 48000, 30000, 1001)
	require.NoError(t, err)

	err = enc.Write([]int16{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	err = enc.Write([]int16{5, 6}, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(6), enc.SampleCount())

	require.NoError(t, enc.Close())

	buf := ws.Bytes()
	require.Equal(t, []byte("RIFF"), buf[0:4])
	require.Equal(t, []byte("JUNK"), buf[12:16])

	// fmt chunk follows the placeholder.
	fmtPos := 20 + binary.LittleEndian.Uint32(buf[16:20])
	require.Equal(t, []byte("fmt "), buf[fmtPos:fmtPos+4])
	require.Equal(t, uint32(16), binary.LittleEndian.Uint32(buf[fmtPos+4:fmtPos+8]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf[fmtPos+8:fmtPos+10]))
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(buf[fmtPos+10:fmtPos+12]))
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(buf[fmtPos+12:fmtPos+16]))

	// Data chunk size equals samples times block alignment over channels.
	dataPos := fmtPos + 8 + 16
	require.Equal(t, []byte("data"), buf[dataPos:dataPos+4])
	require.Equal(t, uint32(12), binary.LittleEndian.Uint32(buf[dataPos+4:dataPos+8]))

	require.Equal(t,
		[]byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 6, 0},
		buf[dataPos+8:dataPos+20])
}

func TestEncoderSampleCountMismatch(t *testing.T) {
	ws := &writerseeker.WriterSeeker{}

	enc, err := NewEncoder(ws, 2, 48000, 30, 1)
	require.NoError(t, err)

	err = enc.Write([]int16{1, 2, 3}, 2)
	require.ErrorIs(t, err, ErrSampleCount)
}

func TestEncoderMultichannel(t *testing.T) {
	ws := &writerseeker.WriterSeeker{}

	enc, err := NewEncoder(ws, 6, 48000, 25, 1)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	buf := ws.Bytes()
	fmtPos := 20 + binary.LittleEndian.Uint32(buf[16:20])

	// Extensible form with a 40-byte payload and full channel mask.
	require.Equal(t, uint32(40), binary.LittleEndian.Uint32(buf[fmtPos+4:fmtPos+8]))
	require.Equal(t, uint16(0xfffe), binary.LittleEndian.Uint16(buf[fmtPos+8:fmtPos+10]))
	require.Equal(t, uint32(0x3f), binary.LittleEndian.Uint32(buf[fmtPos+28:fmtPos+32]))
}
