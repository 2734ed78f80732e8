package riff

import (
	"fmt"
	"io"

	"mcrawfs/pkg/riff/lewriter"
)

// ds64 layout: bw64Size, dataSize and dummy uint64, table length
// uint32, then (id uint32, size uint64) table entries.
const (
	ds64TableReserve = 2
	ds64PayloadSize  = 28 + 12*ds64TableReserve
)

type writerState uint8

const (
	stateCreated writerState = iota
	stateBegun
	stateData
	stateAfterData
	stateFinished
)

// Writer emits a single RIFF/BW64/RF64 container with a WAVE type.
//
// Call order: Begin, WriteFormatChunk, BeginDataChunk, WriteData any
// number of times, optional WriteChunk calls, Finish.
type Writer struct {
	w      *lewriter.Writer
	format Format
	state  writerState

	ds64Pos     int64 // placeholder chunk header, 64-bit formats only.
	dataSizePos int64

	dataBytes uint64
	extra     []extraChunk
}

type extraChunk struct {
	id   string
	size uint64
}

// NewWriter returns a writer emitting to out.
func NewWriter(out io.WriteSeeker, format Format) *Writer {
	return &Writer{
		w:      lewriter.NewWriter(out),
		format: format,
	}
}

// Begin writes the outer chunk header and, for 64-bit formats, the
// ds64 placeholder.
func (w *Writer) Begin() error {
	if w.state != stateCreated {
		return fmt.Errorf("%w: begin called twice", ErrInvalidState)
	}

	w.w.TryWriteUint32(FourCC("RIFF"))
	w.w.TryWriteUint32(0) // Patched on Finish.
	w.w.TryWriteUint32(FourCC("WAVE"))

	if w.format != FormatRIFF {
		// Reserved as JUNK, renamed to ds64 on upgrade.
		w.ds64Pos = w.w.Pos()
		w.w.TryWriteUint32(FourCC("JUNK"))
		w.w.TryWriteUint32(ds64PayloadSize)
		w.w.TryWrite(make([]byte, ds64PayloadSize))
	}
	if w.w.TryError != nil {
		return w.w.TryError
	}

	w.state = stateBegun
	return nil
}

// WriteFormatChunk writes the 'fmt ' chunk.
func (w *Writer) WriteFormatChunk(f FormatInfo) error {
	if w.state != stateBegun {
		return fmt.Errorf("%w: fmt chunk must follow begin", ErrInvalidState)
	}

	switch f.CBSize {
	case 0:
		w.w.TryWriteUint32(FourCC("fmt "))
		w.w.TryWriteUint32(16)
		w.w.TryWriteUint16(formatTagPCM)
	case 22:
		w.w.TryWriteUint32(FourCC("fmt "))
		w.w.TryWriteUint32(40)
		w.w.TryWriteUint16(formatTagExtensible)
	default:
		return fmt.Errorf("%w: cbSize %d", ErrUnsupportedFormat, f.CBSize)
	}

	w.w.TryWriteUint16(f.Channels)
	w.w.TryWriteUint32(f.SampleRate)
	w.w.TryWriteUint32(f.BytesPerSecond())
	w.w.TryWriteUint16(f.BlockAlignment())
	w.w.TryWriteUint16(f.BitsPerSample)

	if f.CBSize == 22 {
		w.w.TryWriteUint16(22)
		w.w.TryWriteUint16(f.BitsPerSample) // Valid bits.
		w.w.TryWriteUint32(f.ChannelMask)
		w.w.TryWriteUint16(subFormatPCM)
		w.w.TryWrite(extensibleGUIDTail[:])
	}
	return w.w.TryError
}

// BeginDataChunk writes the data chunk header. Sample data follows
// through WriteData.
func (w *Writer) BeginDataChunk() error {
	if w.state != stateBegun {
		return fmt.Errorf("%w: data chunk must follow fmt", ErrInvalidState)
	}

	w.w.TryWriteUint32(FourCC("data"))
	w.dataSizePos = w.w.Pos()
	w.w.TryWriteUint32(0) // Patched on Finish.
	if w.w.TryError != nil {
		return w.w.TryError
	}

	w.state = stateData
	return nil
}

// WriteData appends sample bytes to the data chunk.
func (w *Writer) WriteData(p []byte) error {
	if w.state != stateData {
		return fmt.Errorf("%w: no open data chunk", ErrInvalidState)
	}
	if w.format == FormatRIFF && w.dataBytes+uint64(len(p)) > sizeLimit32 {
		return ErrOverflow
	}

	w.w.TryWrite(p)
	if w.w.TryError != nil {
		return w.w.TryError
	}
	w.dataBytes += uint64(len(p))
	return nil
}

// endDataChunk pads the data chunk to an even position. The pad byte
// is not counted in the chunk size.
func (w *Writer) endDataChunk() {
	if w.dataBytes%2 == 1 {
		w.w.TryWrite([]byte{0})
	}
	w.state = stateAfterData
}

// WriteChunk writes an additional chunk after the data chunk.
func (w *Writer) WriteChunk(id string, payload []byte) error {
	if len(id) != 4 {
		return fmt.Errorf("%w: chunk id %q", ErrUnsupportedFormat, id)
	}
	if w.state != stateData && w.state != stateAfterData {
		return fmt.Errorf("%w: chunk %q before data", ErrInvalidState, id)
	}
	if w.state == stateData {
		w.endDataChunk()
	}

	size := uint64(len(payload))
	size32 := uint32(size)
	if size > sizeLimit32 {
		if w.format == FormatRIFF {
			return ErrOverflow
		}
		size32 = sizeLimit32
		w.extra = append(w.extra, extraChunk{id: id, size: size})
	}

	w.w.TryWriteUint32(FourCC(id))
	w.w.TryWriteUint32(size32)
	w.w.TryWrite(payload)
	if size%2 == 1 {
		w.w.TryWrite([]byte{0})
	}
	return w.w.TryError
}

// Finish patches the outstanding size fields and upgrades the
// container to 64-bit sizes if they overflowed.
func (w *Writer) Finish() error {
	if w.state == stateData {
		w.endDataChunk()
	}
	if w.state != stateAfterData {
		return fmt.Errorf("%w: finish before data chunk", ErrInvalidState)
	}

	fileSize := uint64(w.w.Pos())
	riffSize := fileSize - 8

	fits := riffSize <= sizeLimit32 && w.dataBytes <= sizeLimit32 && len(w.extra) == 0
	if w.format == FormatRIFF {
		if !fits {
			return ErrOverflow
		}
		w.patchSizes(uint32(riffSize), uint32(w.dataBytes))
	} else if fits {
		// Stays a plain RIFF, placeholder remains zeroed JUNK.
		w.patchSizes(uint32(riffSize), uint32(w.dataBytes))
	} else {
		if err := w.upgrade(riffSize); err != nil {
			return err
		}
	}

	w.w.TrySeek(0, io.SeekEnd)
	if w.w.TryError != nil {
		return w.w.TryError
	}

	w.state = stateFinished
	return nil
}

func (w *Writer) patchSizes(riffSize, dataSize uint32) {
	w.w.TrySeek(4, io.SeekStart)
	w.w.TryWriteUint32(riffSize)
	w.w.TrySeek(w.dataSizePos, io.SeekStart)
	w.w.TryWriteUint32(dataSize)
}

// upgrade rewrites the outer header for 64-bit sizes and fills the
// ds64 chunk in place of the JUNK placeholder.
func (w *Writer) upgrade(riffSize uint64) error {
	if len(w.extra) > ds64TableReserve {
		return fmt.Errorf("%w: ds64 table exceeded", ErrOverflow)
	}

	outer := "BW64"
	if w.format == FormatRF64 {
		outer = "RF64"
	}

	w.w.TrySeek(0, io.SeekStart)
	w.w.TryWriteUint32(FourCC(outer))
	w.w.TryWriteUint32(sizeLimit32)

	w.w.TrySeek(w.dataSizePos, io.SeekStart)
	w.w.TryWriteUint32(sizeLimit32)

	w.w.TrySeek(w.ds64Pos, io.SeekStart)
	w.w.TryWriteUint32(FourCC("ds64"))
	w.w.TryWriteUint32(ds64PayloadSize)
	w.w.TryWriteUint64(riffSize)
	w.w.TryWriteUint64(w.dataBytes)
	w.w.TryWriteUint64(0) // Dummy.
	w.w.TryWriteUint32(uint32(len(w.extra)))
	for _, c := range w.extra {
		w.w.TryWriteUint32(FourCC(c.id))
		w.w.TryWriteUint64(c.size)
	}
	return w.w.TryError
}

// DataSize bytes written to the data chunk so far.
func (w *Writer) DataSize() uint64 {
	return w.dataBytes
}
