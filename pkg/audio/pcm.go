package audio

import (
	"errors"
	"math"
)

// ErrUnsupportedBitDepth unsupported bits per sample.
var ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

// EncodePCM16 packs int16 samples little-endian, the exact byte
// layout of the data chunk.
func EncodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

func clipSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// EncodePCM packs float samples at the given bit depth. 16-bit input
// carries integer sample values, 24 and 32-bit input is normalized to
// [-1, 1].
func EncodePCM(in []float32, bitsPerSample uint16) ([]byte, error) {
	switch bitsPerSample {
	case 16:
		out := make([]byte, len(in)*2)
		for i, v := range in {
			s := uint16(int16(v))
			out[i*2] = byte(s)
			out[i*2+1] = byte(s >> 8)
		}
		return out, nil
	case 24:
		out := make([]byte, len(in)*3)
		for i, v := range in {
			s := int32(math.Floor(float64(clipSample(v)) * 8388607))
			out[i*3] = byte(s)
			out[i*3+1] = byte(s >> 8)
			out[i*3+2] = byte(s >> 16)
		}
		return out, nil
	case 32:
		out := make([]byte, len(in)*4)
		for i, v := range in {
			s := int32(math.Floor(float64(clipSample(v)) * 2147483647))
			out[i*4] = byte(s)
			out[i*4+1] = byte(s >> 8)
			out[i*4+2] = byte(s >> 16)
			out[i*4+3] = byte(s >> 24)
		}
		return out, nil
	}
	return nil, ErrUnsupportedBitDepth
}

// DecodePCM is the inverse of EncodePCM. 16-bit samples decode to
// their integer value, 24 and 32-bit samples to [-1, 1].
func DecodePCM(in []byte, bitsPerSample uint16) ([]float32, error) {
	switch bitsPerSample {
	case 16:
		out := make([]float32, len(in)/2)
		for i := range out {
			s := int16(uint16(in[i*2]) | uint16(in[i*2+1])<<8)
			out[i] = float32(s)
		}
		return out, nil
	case 24:
		out := make([]float32, len(in)/3)
		for i := range out {
			s := int32(in[i*3])<<8 |
				int32(in[i*3+1])<<16 |
				int32(in[i*3+2])<<24
			out[i] = float32(s) / 2147483647
		}
		return out, nil
	case 32:
		out := make([]float32, len(in)/4)
		for i := range out {
			s := int32(uint32(in[i*4]) |
				uint32(in[i*4+1])<<8 |
				uint32(in[i*4+2])<<16 |
				uint32(in[i*4+3])<<24)
			out[i] = float32(s) / 2147483647
		}
		return out, nil
	}
	return nil, ErrUnsupportedBitDepth
}
