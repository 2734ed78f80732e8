package audio

import (
	"errors"
	"fmt"
	"io"

	"mcrawfs/pkg/riff"
)

// ErrSampleCount sample slice length does not match the frame count.
var ErrSampleCount = errors.New("sample count does not match frame count")

// Encoder frames interleaved 16-bit PCM into a WAVE container.
// The container upgrades itself to BW64 when the data chunk outgrows
// the 32-bit size fields.
type Encoder struct {
	w          *riff.Writer
	channels   int
	sampleRate int

	// Frame-rate hint of the owning capture, retained for metadata
	// chunks. Not part of the minimal chunk set.
	fpsNum int
	fpsDen int

	totalSamples uint64
}

// NewEncoder writes the container headers and returns an encoder
// accepting sample chunks.
func NewEncoder(out io.WriteSeeker, channels, sampleRate, fpsNum, fpsDen int) (*Encoder, error) {
	w := riff.NewWriter(out, riff.FormatBW64)

	if err := w.Begin(); err != nil {
		return nil, fmt.Errorf("begin container: %w", err)
	}

	format := riff.FormatInfo{
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		BitsPerSample: 16,
	}
	if channels > 2 {
		format.CBSize = 22
		format.ChannelMask = uint32(1)<<channels - 1
	}
	if err := w.WriteFormatChunk(format); err != nil {
		return nil, fmt.Errorf("write fmt chunk: %w", err)
	}

	if err := w.BeginDataChunk(); err != nil {
		return nil, fmt.Errorf("begin data chunk: %w", err)
	}

	return &Encoder{
		w:          w,
		channels:   channels,
		sampleRate: sampleRate,
		fpsNum:     fpsNum,
		fpsDen:     fpsDen,
	}, nil
}

// Write appends frameCount sample frames to the data chunk.
// len(samples) must equal frameCount times the channel count.
// Samples pass through untouched, no mixing, resampling or dithering.
func (e *Encoder) Write(samples []int16, frameCount uint64) error {
	if uint64(len(samples)) != frameCount*uint64(e.channels) {
		return fmt.Errorf("%w: %d samples, %d frames, %d channels",
			ErrSampleCount, len(samples), frameCount, e.channels)
	}

	if err := e.w.WriteData(EncodePCM16(samples)); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	e.totalSamples += uint64(len(samples))
	return nil
}

// SampleCount samples written so far.
func (e *Encoder) SampleCount() uint64 {
	return e.totalSamples
}

// Close finalises the chunk sizes. The data chunk size equals the
// written sample frame count times the block alignment.
func (e *Encoder) Close() error {
	return e.w.Finish()
}
