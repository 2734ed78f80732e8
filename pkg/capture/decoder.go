package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"mcrawfs/pkg/audio"
)

// Errors.
var (
	ErrFrameNotFound = errors.New("frame not found")
	ErrCorrupt       = errors.New("corrupt capture file")
)

type frameEntry struct {
	timestamp  int64
	meta       []byte
	dataOffset int64
	dataSize   uint32
}

type audioEntry struct {
	timestamp   int64
	dataOffset  int64
	sampleCount uint32
}

// Decoder reads a capture file. It builds the frame index with a
// single sequential scan at open and reads raw data on demand.
// A decoder must not be shared between goroutines.
type Decoder struct {
	file   *os.File
	header Header

	frames []frameEntry
	audio  []audioEntry
}

// NewDecoder opens a capture file and indexes it.
func NewDecoder(path string) (*Decoder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	d := &Decoder{file: file}

	headerSize, err := d.header.Unmarshal(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}

	if err := d.scan(int64(headerSize)); err != nil {
		file.Close()
		return nil, err
	}
	return d, nil
}

// scan walks the records once, building the frame and audio indexes.
// A truncated trailing record is dropped, everything before it stays
// readable.
func (d *Decoder) scan(offset int64) error {
	stat, err := d.file.Stat()
	if err != nil {
		return err
	}
	fileSize := stat.Size()

	buf := make([]byte, 13)
	for offset < fileSize {
		if _, err := d.file.ReadAt(buf[:9], offset); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		kind := buf[0]
		timestamp := int64(binary.BigEndian.Uint64(buf[1:9]))
		offset += 9

		switch kind {
		case recordFrame:
			if _, err := d.file.ReadAt(buf[:2], offset); err != nil {
				return nil //nolint:nilerr // Truncated record.
			}
			metaSize := int64(binary.BigEndian.Uint16(buf[:2]))
			offset += 2

			meta := make([]byte, metaSize)
			if _, err := d.file.ReadAt(meta, offset); err != nil {
				return nil //nolint:nilerr
			}
			offset += metaSize

			if _, err := d.file.ReadAt(buf[:4], offset); err != nil {
				return nil //nolint:nilerr
			}
			dataSize := binary.BigEndian.Uint32(buf[:4])
			offset += 4

			if offset+int64(dataSize) > fileSize {
				return nil // Truncated record.
			}
			d.frames = append(d.frames, frameEntry{
				timestamp:  timestamp,
				meta:       meta,
				dataOffset: offset,
				dataSize:   dataSize,
			})
			offset += int64(dataSize)

		case recordAudio:
			if _, err := d.file.ReadAt(buf[:4], offset); err != nil {
				return nil //nolint:nilerr
			}
			sampleCount := binary.BigEndian.Uint32(buf[:4])
			offset += 4

			if offset+int64(sampleCount)*2 > fileSize {
				return nil
			}
			d.audio = append(d.audio, audioEntry{
				timestamp:   timestamp,
				dataOffset:  offset,
				sampleCount: sampleCount,
			})
			offset += int64(sampleCount) * 2

		default:
			return fmt.Errorf("%w: record kind %d", ErrCorrupt, kind)
		}
	}
	return nil
}

// Frames returns the frame timestamps in file order.
func (d *Decoder) Frames() ([]int64, error) {
	out := make([]int64, len(d.frames))
	for i, f := range d.frames {
		out[i] = f.timestamp
	}
	return out, nil
}

// LoadFrame reads and unpacks the raw frame with the given timestamp.
// The returned raw buffer holds width*height pixels as little-endian
// uint16 values.
func (d *Decoder) LoadFrame(timestamp int64) ([]byte, []byte, error) {
	var entry *frameEntry
	for i := range d.frames {
		if d.frames[i].timestamp == timestamp {
			entry = &d.frames[i]
			break
		}
	}
	if entry == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrFrameNotFound, timestamp)
	}

	packed := make([]byte, entry.dataSize)
	if _, err := d.file.ReadAt(packed, entry.dataOffset); err != nil {
		return nil, nil, fmt.Errorf("read frame data: %w", err)
	}

	count := int(d.header.Width) * int(d.header.Height)
	if int(entry.dataSize) < packedSize(count, d.header.PixelBits) {
		return nil, nil, fmt.Errorf("%w: frame data too short", ErrCorrupt)
	}

	pixels, err := UnpackPixels(packed, count, d.header.PixelBits)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack pixels: %w", err)
	}

	raw := make([]byte, count*2)
	for i, p := range pixels {
		binary.LittleEndian.PutUint16(raw[i*2:i*2+2], p)
	}
	return raw, entry.meta, nil
}

// LoadAudio reads all audio chunks sorted by timestamp.
func (d *Decoder) LoadAudio() ([]audio.Chunk, error) {
	chunks := make([]audio.Chunk, 0, len(d.audio))

	for _, entry := range d.audio {
		buf := make([]byte, int(entry.sampleCount)*2)
		if _, err := d.file.ReadAt(buf, entry.dataOffset); err != nil {
			return nil, fmt.Errorf("read audio data: %w", err)
		}

		samples := make([]int16, entry.sampleCount)
		for i := range samples {
			samples[i] = int16(binary.BigEndian.Uint16(buf[i*2 : i*2+2]))
		}
		chunks = append(chunks, audio.Chunk{
			Timestamp: entry.timestamp,
			Samples:   samples,
		})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Timestamp < chunks[j].Timestamp
	})
	return chunks, nil
}

// AudioSampleRateHz sample rate of the audio stream.
func (d *Decoder) AudioSampleRateHz() int {
	return int(d.header.AudioSampleRate)
}

// NumAudioChannels channel count of the audio stream.
func (d *Decoder) NumAudioChannels() int {
	return int(d.header.AudioChannels)
}

// ContainerMetadata raw container metadata.
func (d *Decoder) ContainerMetadata() []byte {
	return d.header.Meta
}

// Width sensor width in pixels.
func (d *Decoder) Width() int {
	return int(d.header.Width)
}

// Height sensor height in pixels.
func (d *Decoder) Height() int {
	return int(d.header.Height)
}

// Close closes the underlying file.
func (d *Decoder) Close() error {
	return d.file.Close()
}
