package session

// utteranceBuffer is the append-only ring of resampled samples for the
// current utterance (spec.md §3). It is deliberately a slice of
// fragments rather than one flat slice so that Append never has to
// copy previously-appended audio; Flatten materializes the
// concatenation only when a cycle actually needs to look at it.
type utteranceBuffer struct {
	fragments [][]float32
	length    int
}

func (b *utteranceBuffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.fragments = append(b.fragments, samples)
	b.length += len(samples)
}

func (b *utteranceBuffer) Len() int {
	return b.length
}

func (b *utteranceBuffer) DurationSeconds() float64 {
	return float64(b.length) / TargetSampleRate
}

// Flatten returns the full buffer as one contiguous slice.
func (b *utteranceBuffer) Flatten() []float32 {
	if len(b.fragments) == 1 {
		return b.fragments[0]
	}
	out := make([]float32, 0, b.length)
	for _, f := range b.fragments {
		out = append(out, f...)
	}
	return out
}

// Reset empties the buffer entirely.
func (b *utteranceBuffer) Reset() {
	b.fragments = nil
	b.length = 0
}

// TruncateToTail replaces the buffer contents with the suffix starting
// at sample index splitSample (spec.md invariant 6, the Finalizer's
// tail-preservation splice in §4.6.E).
func (b *utteranceBuffer) TruncateToTail(splitSample int) {
	if splitSample <= 0 {
		return
	}
	if splitSample >= b.length {
		b.Reset()
		return
	}
	tail := b.Flatten()[splitSample:]
	b.fragments = [][]float32{tail}
	b.length = len(tail)
}

// Slice returns samples [from:to) of the flattened buffer. Used by the
// Windower to select the last W_MAX seconds without mutating state.
func (b *utteranceBuffer) Slice(from, to int) []float32 {
	full := b.Flatten()
	if from < 0 {
		from = 0
	}
	if to > len(full) {
		to = len(full)
	}
	if from >= to {
		return nil
	}
	return full[from:to]
}

// recordingBuffer is the parallel full-session PCM archive. The core
// never reads it back; it exists so an operator can export the
// session's audio after the fact (spec.md §1: the automatic wave-file
// dump itself is out of scope, but exposing the raw samples is not).
type recordingBuffer struct {
	fragments [][]float32
	length    int
}

func (r *recordingBuffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}
	r.fragments = append(r.fragments, samples)
	r.length += len(samples)
}

func (r *recordingBuffer) Flatten() []float32 {
	out := make([]float32, 0, r.length)
	for _, f := range r.fragments {
		out = append(out, f...)
	}
	return out
}
