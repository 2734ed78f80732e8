// Package riff writes RIFF family containers. Plain RIFF uses 32-bit
// chunk sizes, BW64 and RF64 escape to 64-bit sizes through a ds64
// chunk that replaces a reserved JUNK placeholder when needed.
package riff

import (
	"errors"
)

// Format is the container flavor requested at creation.
type Format uint8

// Container flavors.
const (
	// FormatRIFF is strictly 32-bit. Writes that would exceed the
	// 32-bit size fields fail with ErrOverflow.
	FormatRIFF Format = iota

	// FormatBW64 reserves a ds64 placeholder up front and upgrades
	// the container on Finish if any size field overflows. A
	// container that fits stays plain RIFF with a zeroed JUNK chunk.
	FormatBW64

	// FormatRF64 is identical to FormatBW64 except for the outer
	// four-character code written on upgrade.
	FormatRF64
)

const sizeLimit32 = 0xFFFFFFFF

// Errors.
var (
	ErrOverflow          = errors.New("size does not fit in 32 bits")
	ErrInvalidState      = errors.New("invalid writer state")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// FourCC packs a four-character code the way it appears on the wire,
// little-endian: b[0] | b[1]<<8 | b[2]<<16 | b[3]<<24.
func FourCC(code string) uint32 {
	return uint32(code[0]) |
		uint32(code[1])<<8 |
		uint32(code[2])<<16 |
		uint32(code[3])<<24
}

// FourCCString unpacks a four-character code.
func FourCCString(id uint32) string {
	return string([]byte{
		byte(id),
		byte(id >> 8),
		byte(id >> 16),
		byte(id >> 24),
	})
}

// FormatInfo describes the PCM stream carried in the 'fmt ' chunk.
//
// CBSize selects the chunk layout: 0 writes the 16-byte plain PCM
// form (format tag 1), 22 writes the 40-byte WAVE_FORMAT_EXTENSIBLE
// form (format tag 0xFFFE with PCM subformat). Other values are
// rejected.
type FormatInfo struct {
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16

	CBSize      uint16
	ChannelMask uint32
}

// BlockAlignment bytes per sample frame.
func (f FormatInfo) BlockAlignment() uint16 {
	return f.Channels * f.BitsPerSample / 8
}

// BytesPerSecond data rate of the stream.
func (f FormatInfo) BytesPerSecond() uint32 {
	return f.SampleRate * uint32(f.BlockAlignment())
}

const (
	formatTagPCM        = 1
	formatTagExtensible = 0xFFFE
	subFormatPCM        = 1
)

// Tail of the extensible GUID after the 2-byte subformat,
// 00000010-8000-00aa-00389b71.
var extensibleGUIDTail = [14]byte{
	0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
	0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71,
}
