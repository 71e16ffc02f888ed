package session

import "math"

// window is the audio slice fed to the model along with windowOffset,
// the number of seconds of the utterance preceding it (spec.md §4.3).
type window struct {
	audio         []float32
	offsetSeconds float64
	totalDuration float64
}

// makeWindow selects the last WindowMaxSeconds of buf, or the full
// buffer if shorter.
func makeWindow(buf *utteranceBuffer) window {
	total := buf.DurationSeconds()
	if total > WindowMaxSeconds {
		maxSamples := int(WindowMaxSeconds * TargetSampleRate)
		start := buf.Len() - maxSamples
		return window{
			audio:         buf.Slice(start, buf.Len()),
			offsetSeconds: total - WindowMaxSeconds,
			totalDuration: total,
		}
	}
	return window{
		audio:         buf.Flatten(),
		offsetSeconds: 0,
		totalDuration: total,
	}
}

// rms computes the root-mean-square amplitude of a window (spec.md §4.4).
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		v := float64(s)
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}
