package session

import "math"

// Resample converts samples at srcRate to TargetSampleRate by linear
// interpolation, matching the original source's
// np.interp(np.linspace(0, len-1, target_len), ...) construction
// exactly: sample k of the output is the linear interpolation of the
// source at k*(len-1)/(targetLen-1).
//
// If srcRate is already TargetSampleRate the input is returned
// unchanged (spec.md invariant: idempotent resampling).
func Resample(samples []float32, srcRate uint32) []float32 {
	if srcRate == 0 {
		srcRate = TargetSampleRate
	}
	if srcRate == TargetSampleRate {
		return samples
	}
	if len(samples) == 0 {
		return nil
	}

	duration := float64(len(samples)) / float64(srcRate)
	targetLen := int(duration * TargetSampleRate)
	if targetLen <= 0 {
		return nil
	}
	if len(samples) == 1 {
		out := make([]float32, targetLen)
		for i := range out {
			out[i] = samples[0]
		}
		return out
	}

	out := make([]float32, targetLen)
	srcLastIdx := float64(len(samples) - 1)
	for k := 0; k < targetLen; k++ {
		// x_new[k] = k * (len-1) / (targetLen-1), matching
		// np.linspace(0, len(src)-1, targetLen).
		var x float64
		if targetLen == 1 {
			x = 0
		} else {
			x = float64(k) * srcLastIdx / float64(targetLen-1)
		}
		lo := int(x)
		if lo >= len(samples)-1 {
			out[k] = samples[len(samples)-1]
			continue
		}
		frac := x - float64(lo)
		out[k] = float32(float64(samples[lo])*(1-frac) + float64(samples[lo+1])*frac)
	}
	return out
}

// sanitizeChunk drops non-finite samples by clamping them to silence,
// protecting the pipeline from a malformed chunk (spec.md §7). It
// reports whether any sample needed clamping.
func sanitizeChunk(samples []float32) (cleaned []float32, hadNonFinite bool) {
	for i, s := range samples {
		if isNonFinite(s) {
			if !hadNonFinite {
				cleaned = make([]float32, len(samples))
				copy(cleaned, samples)
				hadNonFinite = true
			}
			cleaned[i] = 0
		}
	}
	if !hadNonFinite {
		return samples, false
	}
	return cleaned, true
}

func isNonFinite(f float32) bool {
	v := float64(f)
	return math.IsNaN(v) || math.IsInf(v, 0)
}
