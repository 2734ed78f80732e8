package capture

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// PackPixels packs pixel values at the given bit depth.
func PackPixels(pixels []uint16, pixelBits uint8) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := bitio.NewWriter(buf)

	maxValue := uint16(1)<<pixelBits - 1
	for _, p := range pixels {
		if p > maxValue {
			return nil, fmt.Errorf("%w: pixel %d at %d bits",
				ErrUnsupportedDepth, p, pixelBits)
		}
		w.TryWriteBits(uint64(p), pixelBits)
	}
	if w.TryError != nil {
		return nil, w.TryError
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnpackPixels is the inverse of PackPixels.
func UnpackPixels(data []byte, count int, pixelBits uint8) ([]uint16, error) {
	r := bitio.NewReader(bytes.NewReader(data))

	pixels := make([]uint16, count)
	for i := range pixels {
		v := r.TryReadBits(pixelBits)
		pixels[i] = uint16(v)
	}
	if r.TryError != nil {
		return nil, r.TryError
	}
	return pixels, nil
}

// packedSize bytes needed for count pixels at pixelBits.
func packedSize(count int, pixelBits uint8) int {
	return (count*int(pixelBits) + 7) / 8
}
