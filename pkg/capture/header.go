package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Record kinds.
const (
	recordFrame = uint8(0)
	recordAudio = uint8(1)
)

var magic = [4]byte{'M', 'C', 'A', 'P'}

// Errors.
var (
	ErrBadMagic           = errors.New("not a capture file")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrUnsupportedDepth   = errors.New("unsupported pixel depth")
)

// Header capture file header.
type Header struct {
	Width           uint16
	Height          uint16
	PixelBits       uint8
	AudioChannels   uint8
	AudioSampleRate uint32
	Meta            []byte // Container metadata, JSON.
}

// Size marshaled size.
func (h *Header) Size() int {
	return 17 + len(h.Meta)
}

// Marshal header.
func (h Header) Marshal() []byte {
	out := make([]byte, h.Size())
	pos := 0

	copy(out[0:4], magic[:])
	pos += 4

	const version = 0
	out[pos] = version
	pos++

	binary.BigEndian.PutUint16(out[pos:pos+2], h.Width)
	pos += 2
	binary.BigEndian.PutUint16(out[pos:pos+2], h.Height)
	pos += 2

	out[pos] = h.PixelBits
	pos++
	out[pos] = h.AudioChannels
	pos++

	binary.BigEndian.PutUint32(out[pos:pos+4], h.AudioSampleRate)
	pos += 4

	binary.BigEndian.PutUint16(out[pos:pos+2], uint16(len(h.Meta)))
	pos += 2
	copy(out[pos:], h.Meta)

	return out
}

// Unmarshal header from reader.
func (h *Header) Unmarshal(r io.Reader) (int, error) {
	buf := make([]byte, 17)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return 0, err
	}

	if [4]byte(buf[0:4]) != magic {
		return 0, ErrBadMagic
	}
	if buf[4] != 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, buf[4])
	}

	h.Width = binary.BigEndian.Uint16(buf[5:7])
	h.Height = binary.BigEndian.Uint16(buf[7:9])
	h.PixelBits = buf[9]
	h.AudioChannels = buf[10]
	h.AudioSampleRate = binary.BigEndian.Uint32(buf[11:15])

	metaSize := binary.BigEndian.Uint16(buf[15:17])
	h.Meta = make([]byte, metaSize)
	n2, err := io.ReadFull(r, h.Meta)
	if err != nil {
		return 0, err
	}

	switch h.PixelBits {
	case 10, 12, 16:
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedDepth, h.PixelBits)
	}

	return n + n2, nil
}
