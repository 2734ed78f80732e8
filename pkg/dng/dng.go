// Package dng encodes raw sensor frames as minimal DNG images,
// a TIFF container with the baseline CFA tag set.
package dng

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"mcrawfs/pkg/camera"
	"mcrawfs/pkg/vfs"
)

// Errors.
var (
	ErrBadRawSize = errors.New("raw size does not match frame dimensions")
	ErrBadScale   = errors.New("scale must be at least 1")
)

// TIFF field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeSRational = 10
)

// Tag codes.
const (
	tagNewSubfileType    = 254
	tagImageWidth        = 256
	tagImageLength       = 257
	tagBitsPerSample     = 258
	tagCompression       = 259
	tagPhotometric       = 262
	tagMake              = 271
	tagModel             = 272
	tagStripOffsets      = 273
	tagOrientation       = 274
	tagSamplesPerPixel   = 277
	tagRowsPerStrip      = 278
	tagStripByteCounts   = 279
	tagPlanarConfig      = 284
	tagCFARepeatDim      = 33421
	tagCFAPattern        = 33422
	tagImageNumber       = 37393
	tagDNGVersion        = 50706
	tagUniqueCameraModel = 50708
	tagBlackLevel        = 50714
	tagWhiteLevel        = 50717
	tagFrameRate         = 51044
)

const photometricCFA = 32803

// Encoder implements vfs.FrameEncoder.
type Encoder struct{}

// NewEncoder returns a DNG encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode turns raw pixel data (width*height little-endian uint16
// values) into a DNG byte vector. A scale above 1 decimates the image
// by that factor in both dimensions. Output is deterministic for
// identical inputs.
func (e *Encoder) Encode(
	raw []byte,
	frameMeta camera.FrameMetadata,
	containerMeta camera.Metadata,
	fps float32,
	frameIndex int,
	options vfs.Options,
	scale int,
) ([]byte, error) {
	if scale < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBadScale, scale)
	}

	width := frameMeta.Width
	height := frameMeta.Height
	if len(raw) != width*height*2 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d",
			ErrBadRawSize, len(raw), width, height)
	}

	outWidth := width / scale
	outHeight := height / scale
	if outWidth < 1 || outHeight < 1 {
		return nil, fmt.Errorf("%w: scale %d larger than frame", ErrBadScale, scale)
	}

	strip := decimate(raw, width, outWidth, outHeight, scale)

	orientation := frameMeta.Orientation
	if orientation == 0 {
		orientation = 1
	}

	blackLevel := uint16(0)
	if len(containerMeta.BlackLevel) > 0 {
		blackLevel = containerMeta.BlackLevel[0]
	}
	whiteLevel := containerMeta.WhiteLevel
	if whiteLevel == 0 {
		whiteLevel = 0xFFFF
	}

	cfa := containerMeta.CFAPattern()

	b := newIFDBuilder()
	b.addLong(tagNewSubfileType, 0)
	b.addLong(tagImageWidth, uint32(outWidth))
	b.addLong(tagImageLength, uint32(outHeight))
	b.addShort(tagBitsPerSample, 16)
	b.addShort(tagCompression, 1)
	b.addShort(tagPhotometric, photometricCFA)
	b.addASCII(tagMake, containerMeta.Make)
	b.addASCII(tagModel, containerMeta.Model)
	b.addLong(tagStripOffsets, 0) // Patched below.
	b.addShort(tagOrientation, uint16(orientation))
	b.addShort(tagSamplesPerPixel, 1)
	b.addLong(tagRowsPerStrip, uint32(outHeight))
	b.addLong(tagStripByteCounts, uint32(len(strip)))
	b.addShort(tagPlanarConfig, 1)
	b.addShorts(tagCFARepeatDim, []uint16{2, 2})
	b.addBytes(tagCFAPattern, cfa[:])
	b.addLong(tagImageNumber, uint32(frameIndex))
	b.addBytes(tagDNGVersion, []byte{1, 4, 0, 0})
	b.addASCII(tagUniqueCameraModel, containerMeta.Make+" "+containerMeta.Model)
	b.addShort(tagBlackLevel, blackLevel)
	b.addShort(tagWhiteLevel, whiteLevel)

	num, den := frameRateFraction(fps)
	b.addSRational(tagFrameRate, num, den)

	return b.build(strip), nil
}

// decimate copies every scale-th pixel of every scale-th row.
func decimate(raw []byte, srcWidth, outWidth, outHeight, scale int) []byte {
	if scale == 1 {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out
	}

	out := make([]byte, outWidth*outHeight*2)
	for y := 0; y < outHeight; y++ {
		srcRow := y * scale * srcWidth
		for x := 0; x < outWidth; x++ {
			src := (srcRow + x*scale) * 2
			dst := (y*outWidth + x) * 2
			out[dst] = raw[src]
			out[dst+1] = raw[src+1]
		}
	}
	return out
}

// frameRateFraction approximates fps with an integer fraction,
// preferring the broadcast rates.
func frameRateFraction(fps float32) (int32, int32) {
	known := []struct {
		fps float32
		num int32
		den int32
	}{
		{23.976, 24000, 1001},
		{29.97, 30000, 1001},
		{59.94, 60000, 1001},
	}
	for _, k := range known {
		if math.Abs(float64(fps-k.fps)) < 0.01 {
			return k.num, k.den
		}
	}
	return int32(math.Round(float64(fps) * 1000)), 1000
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte // Payload, inlined when it fits in 4 bytes.
}

type ifdBuilder struct {
	entries []ifdEntry
}

func newIFDBuilder() *ifdBuilder {
	return &ifdBuilder{}
}

func (b *ifdBuilder) add(tag, typ uint16, count uint32, value []byte) {
	b.entries = append(b.entries, ifdEntry{tag: tag, typ: typ, count: count, value: value})
}

func (b *ifdBuilder) addShort(tag uint16, v uint16) {
	value := make([]byte, 2)
	binary.LittleEndian.PutUint16(value, v)
	b.add(tag, typeShort, 1, value)
}

func (b *ifdBuilder) addShorts(tag uint16, vs []uint16) {
	value := make([]byte, len(vs)*2)
	for i, v := range vs {
		binary.LittleEndian.PutUint16(value[i*2:], v)
	}
	b.add(tag, typeShort, uint32(len(vs)), value)
}

func (b *ifdBuilder) addLong(tag uint16, v uint32) {
	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, v)
	b.add(tag, typeLong, 1, value)
}

func (b *ifdBuilder) addBytes(tag uint16, v []byte) {
	b.add(tag, typeByte, uint32(len(v)), v)
}

func (b *ifdBuilder) addASCII(tag uint16, s string) {
	b.add(tag, typeASCII, uint32(len(s)+1), append([]byte(s), 0))
}

func (b *ifdBuilder) addSRational(tag uint16, num, den int32) {
	value := make([]byte, 8)
	binary.LittleEndian.PutUint32(value[0:4], uint32(num))
	binary.LittleEndian.PutUint32(value[4:8], uint32(den))
	b.add(tag, typeSRational, 1, value)
}

// build lays out header, IFD, out-of-line values and the pixel strip.
func (b *ifdBuilder) build(strip []byte) []byte {
	sort.Slice(b.entries, func(i, j int) bool {
		return b.entries[i].tag < b.entries[j].tag
	})

	const headerSize = 8
	ifdSize := 2 + len(b.entries)*12 + 4
	dataStart := headerSize + ifdSize

	// Assign out-of-line offsets, even-aligned.
	dataSize := 0
	for _, e := range b.entries {
		if len(e.value) > 4 {
			dataSize += (len(e.value) + 1) &^ 1
		}
	}
	stripStart := dataStart + dataSize

	// The strip offset is known now.
	for i := range b.entries {
		if b.entries[i].tag == tagStripOffsets {
			binary.LittleEndian.PutUint32(b.entries[i].value, uint32(stripStart))
		}
	}

	out := make([]byte, stripStart+len(strip))

	// Header.
	out[0] = 'I'
	out[1] = 'I'
	binary.LittleEndian.PutUint16(out[2:4], 42)
	binary.LittleEndian.PutUint32(out[4:8], headerSize)

	// IFD.
	pos := headerSize
	binary.LittleEndian.PutUint16(out[pos:], uint16(len(b.entries)))
	pos += 2

	dataPos := dataStart
	for _, e := range b.entries {
		binary.LittleEndian.PutUint16(out[pos:], e.tag)
		binary.LittleEndian.PutUint16(out[pos+2:], e.typ)
		binary.LittleEndian.PutUint32(out[pos+4:], e.count)

		if len(e.value) <= 4 {
			copy(out[pos+8:pos+12], e.value)
		} else {
			binary.LittleEndian.PutUint32(out[pos+8:], uint32(dataPos))
			copy(out[dataPos:], e.value)
			dataPos += (len(e.value) + 1) &^ 1
		}
		pos += 12
	}
	binary.LittleEndian.PutUint32(out[pos:], 0) // No next IFD.

	copy(out[stripStart:], strip)
	return out
}
