package audio

import (
	"math"
)

// Sync aligns the start of the audio stream to the first video frame.
// Audio that starts late is trimmed, audio that starts early gets a
// silence chunk prepended. On return the first chunk starts exactly at
// videoT0.
func Sync(videoT0 int64, chunks []Chunk, sampleRate, numChannels int) []Chunk {
	if len(chunks) == 0 {
		return chunks
	}

	driftMs := float64(chunks[0].Timestamp-videoT0) * 1e-6

	if driftMs > 0 {
		framesToRemove := int(math.Round(driftMs * float64(sampleRate) / 1000))
		samplesToRemove := framesToRemove * numChannels

		samplesRemoved := 0
		for len(chunks) > 0 && samplesRemoved < samplesToRemove {
			remaining := samplesToRemove - samplesRemoved

			if len(chunks[0].Samples) <= remaining {
				samplesRemoved += len(chunks[0].Samples)
				chunks = chunks[1:]
				continue
			}

			chunks[0].Samples = chunks[0].Samples[remaining:]
			break
		}

		// The trimmed head now corresponds to the video epoch, any
		// rounding residue is under one sample period.
		if len(chunks) > 0 {
			chunks[0].Timestamp = videoT0
		}
		return chunks
	}

	// Audio starts before video, prepend silence.
	driftNs := videoT0 - chunks[0].Timestamp // Positive.

	silenceFrames := int(math.Round(-driftMs * float64(sampleRate) / 1000))
	silenceSamples := silenceFrames * numChannels

	out := make([]Chunk, 0, len(chunks)+1)
	out = append(out, Chunk{
		Timestamp: videoT0,
		Samples:   make([]int16, silenceSamples),
	})

	for _, c := range chunks {
		c.Timestamp += driftNs
		out = append(out, c)
	}
	return out
}
