package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Errors.
var (
	ErrPixelCount   = errors.New("pixel count does not match dimensions")
	ErrAudioSamples = errors.New("sample count does not match channel count")
)

// Writer appends records to a capture file.
type Writer struct {
	out    io.Writer
	header Header
}

// NewWriter creates a new Writer and writes the header.
func NewWriter(out io.Writer, header Header) (*Writer, error) {
	switch header.PixelBits {
	case 10, 12, 16:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, header.PixelBits)
	}

	if _, err := out.Write(header.Marshal()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	return &Writer{
		out:    out,
		header: header,
	}, nil
}

// WriteFrame appends a raw frame record.
func (w *Writer) WriteFrame(timestamp int64, meta []byte, pixels []uint16) error {
	if len(pixels) != int(w.header.Width)*int(w.header.Height) {
		return fmt.Errorf("%w: %d pixels for %dx%d",
			ErrPixelCount, len(pixels), w.header.Width, w.header.Height)
	}

	packed, err := PackPixels(pixels, w.header.PixelBits)
	if err != nil {
		return fmt.Errorf("pack pixels: %w", err)
	}

	head := make([]byte, 1+8+2)
	head[0] = recordFrame
	binary.BigEndian.PutUint64(head[1:9], uint64(timestamp))
	binary.BigEndian.PutUint16(head[9:11], uint16(len(meta)))

	if _, err := w.out.Write(head); err != nil {
		return err
	}
	if _, err := w.out.Write(meta); err != nil {
		return err
	}

	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(packed)))
	if _, err := w.out.Write(size); err != nil {
		return err
	}
	if _, err := w.out.Write(packed); err != nil {
		return err
	}
	return nil
}

// WriteAudio appends an audio record. len(samples) must be a multiple
// of the channel count.
func (w *Writer) WriteAudio(timestamp int64, samples []int16) error {
	if w.header.AudioChannels == 0 ||
		len(samples)%int(w.header.AudioChannels) != 0 {
		return fmt.Errorf("%w: %d samples for %d channels",
			ErrAudioSamples, len(samples), w.header.AudioChannels)
	}

	head := make([]byte, 1+8+4)
	head[0] = recordAudio
	binary.BigEndian.PutUint64(head[1:9], uint64(timestamp))
	binary.BigEndian.PutUint32(head[9:13], uint32(len(samples)))

	if _, err := w.out.Write(head); err != nil {
		return err
	}

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.BigEndian.PutUint16(buf[i*2:i*2+2], uint16(s))
	}
	if _, err := w.out.Write(buf); err != nil {
		return err
	}
	return nil
}
