package vfs

import (
	"mcrawfs/pkg/audio"
	"mcrawfs/pkg/camera"
)

// Decoder yields frames, audio and metadata from a capture file.
// Implementations are not required to be goroutine-safe, the file
// system opens one decoder per worker.
type Decoder interface {
	// Frames returns frame timestamps in file order.
	Frames() ([]int64, error)

	// LoadFrame returns the raw pixel data and metadata blob of the
	// frame with the given timestamp.
	LoadFrame(timestamp int64) (raw []byte, metadata []byte, err error)

	// LoadAudio returns all audio chunks sorted by timestamp.
	LoadAudio() ([]audio.Chunk, error)

	AudioSampleRateHz() int
	NumAudioChannels() int

	// ContainerMetadata returns the capture-wide metadata blob.
	ContainerMetadata() []byte

	Close() error
}

// DecoderFactory opens a decoder for a capture path. Called once per
// worker on first use.
type DecoderFactory func(path string) (Decoder, error)

// FrameEncoder turns a decoded raw frame into image file bytes.
// Encoding must be deterministic for identical inputs.
type FrameEncoder interface {
	Encode(
		raw []byte,
		frameMeta camera.FrameMetadata,
		containerMeta camera.Metadata,
		fps float32,
		frameIndex int,
		options Options,
		scale int,
	) ([]byte, error)
}
