package vfs

import (
	"fmt"
	"math"
)

// Served for the optional hidden entry on hosts that want one.
const desktopIni = `[.ShellClassInfo]
ConfirmFileOp=0

[ViewState]
Mode=4
Vid={137E7700-3573-11CF-AE69-08002B2E1262}
FolderType=Generic

[{5984FFE0-28D4-11CF-AE66-08002B2E1262}]
Mode=4
LogicalViewMode=1
IconSize=16

[LocalizedFileNames]
`

// CalculateFrameRate derives the nominal frame rate from sorted frame
// timestamps. Uses a running average over the strictly positive
// durations to prevent overflow. Returns 0 when no duration is
// positive.
func CalculateFrameRate(frames []int64) float32 {
	if len(frames) < 2 {
		return 0
	}

	avgDuration := 0.0
	validFrames := 0

	for i := 1; i < len(frames); i++ {
		duration := float64(frames[i] - frames[i-1])

		if duration > 0 {
			// new_avg = old_avg + (new_value - old_avg) / (count + 1)
			avgDuration += (duration - avgDuration) / float64(validFrames+1)
			validFrames++
		}
	}

	if validFrames == 0 {
		return 0
	}

	return float32(1000000000.0 / avgDuration)
}

// frameNumberFromTimestamp maps a timestamp onto the uniform frame
// grid anchored at referenceTimestamp. Returns -1 for timestamps
// before the reference or a non-positive frame rate.
func frameNumberFromTimestamp(timestamp, referenceTimestamp int64, frameRate float32) int64 {
	if frameRate <= 0 {
		return -1
	}

	timeDifference := timestamp - referenceTimestamp
	if timeDifference < 0 {
		return -1
	}

	nanosecondsPerFrame := 1000000000.0 / float64(frameRate)

	return int64(math.Round(float64(timeDifference) / nanosecondsPerFrame))
}

// constructFrameName builds a zero-padded frame file name.
func constructFrameName(baseName string, frameNumber, padding int, extension string) string {
	name := fmt.Sprintf("%s%0*d", baseName, padding, frameNumber)
	if extension != "" {
		if extension[0] != '.' {
			name += "."
		}
		name += extension
	}
	return name
}

// toFraction approximates a frame rate with an integer fraction,
// matching the broadcast rates exactly.
func toFraction(fps float32) (int, int) {
	known := []struct {
		fps float32
		num int
		den int
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
	return int(math.Round(float64(fps) * 1000)), 1000
}
