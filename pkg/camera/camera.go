// Package camera parses the metadata blobs a capture carries into
// value types.
package camera

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrParse malformed metadata.
var ErrParse = errors.New("could not parse metadata")

// Metadata is the container-wide camera description.
type Metadata struct {
	Make              string    `json:"make"`
	Model             string    `json:"model"`
	SensorArrangement string    `json:"sensorArrangment"`
	BlackLevel        []uint16  `json:"blackLevel"`
	WhiteLevel        uint16    `json:"whiteLevel"`
	ColorMatrix1      []float32 `json:"colorMatrix1"`
	ColorMatrix2      []float32 `json:"colorMatrix2"`
	ApertureF         float32   `json:"aperture"`
}

// FrameMetadata describes a single raw frame.
type FrameMetadata struct {
	Timestamp      int64 `json:"timestamp"`
	Width          int   `json:"width"`
	Height         int   `json:"height"`
	ExposureTimeNs int64 `json:"exposureTime"`
	ISO            int   `json:"iso"`
	Orientation    int   `json:"orientation"`
}

// ParseMetadata parses container metadata.
func ParseMetadata(raw []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return m, nil
}

// ParseFrameMetadata parses per-frame metadata.
func ParseFrameMetadata(raw []byte) (FrameMetadata, error) {
	var m FrameMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return FrameMetadata{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return FrameMetadata{}, fmt.Errorf("%w: missing frame dimensions", ErrParse)
	}
	return m, nil
}

// CFAPattern maps the sensor arrangement to the four-byte CFA layout
// used by raw image formats. Defaults to RGGB.
func (m Metadata) CFAPattern() [4]byte {
	switch m.SensorArrangement {
	case "bggr":
		return [4]byte{2, 1, 1, 0}
	case "grbg":
		return [4]byte{1, 0, 2, 1}
	case "gbrg":
		return [4]byte{1, 2, 0, 1}
	default: // rggb
		return [4]byte{0, 1, 1, 2}
	}
}
