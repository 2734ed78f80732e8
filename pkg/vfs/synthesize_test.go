package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateFrameRate(t *testing.T) {
	cases := []struct {
		name     string
		frames   []int64
		expected float32
	}{
		{"empty", nil, 0},
		{"single", []int64{1_000_000_000}, 0},
		{"uniform30", []int64{0, 33_333_333, 66_666_666}, 30.0},
		{"uniform24", []int64{0, 41_666_667, 83_333_334, 125_000_001}, 24.0},
		{"duplicateTimestamps", []int64{0, 0, 0}, 0},
		{"someDuplicates", []int64{0, 0, 33_333_333}, 30.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fps := CalculateFrameRate(tc.frames)
			require.InDelta(t, tc.expected, fps, 0.01)
		})
	}
}

func TestCalculateFrameRateSign(t *testing.T) {
	// Any monotonically increasing list yields a positive rate.
	frames := []int64{5, 100, 5000, 1_000_000, 2_000_000}
	require.Greater(t, CalculateFrameRate(frames), float32(0))
}

func TestFrameNumberFromTimestamp(t *testing.T) {
	const fps = 30.0
	const frameDuration = 33_333_333

	require.Equal(t, int64(0), frameNumberFromTimestamp(1000, 1000, fps))
	require.Equal(t, int64(1), frameNumberFromTimestamp(1000+frameDuration, 1000, fps))
	require.Equal(t, int64(3), frameNumberFromTimestamp(3*frameDuration, 0, fps))

	// Before the reference or without a rate.
	require.Equal(t, int64(-1), frameNumberFromTimestamp(0, 1000, fps))
	require.Equal(t, int64(-1), frameNumberFromTimestamp(1000, 0, 0))
}

func TestConstructFrameName(t *testing.T) {
	require.Equal(t, "frame-000000.dng", constructFrameName("frame-", 0, 6, "dng"))
	require.Equal(t, "frame-000042.dng", constructFrameName("frame-", 42, 6, "dng"))
	require.Equal(t, "frame-123456.dng", constructFrameName("frame-", 123456, 6, ".dng"))
	require.Equal(t, "x-01", constructFrameName("x-", 1, 2, ""))
}

func TestToFraction(t *testing.T) {
	num, den := toFraction(29.97)
	require.Equal(t, 30000, num)
	require.Equal(t, 1001, den)

	num, den = toFraction(30)
	require.Equal(t, 30000, num)
	require.Equal(t, 1000, den)
}

func TestScaleFromOptions(t *testing.T) {
	require.Equal(t, 4, scaleFromOptions(OptionDraft, 4))
	require.Equal(t, 1, scaleFromOptions(0, 4))
}

func TestOptionsString(t *testing.T) {
	require.Equal(t, "none", Options(0).String())
	require.Equal(t, "draft", OptionDraft.String())
}
