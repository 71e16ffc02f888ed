package session

import "context"

// Transcriber is the STT model adapter interface (spec.md §4.5): an
// opaque black box that maps a 16kHz mono PCM window to segments with
// word-level timestamps and confidence scores. Implementations live
// outside this package (pkg/transcriber/...); the session state
// machine only ever depends on this interface.
type Transcriber interface {
	// Transcribe submits window (16kHz mono float32 PCM, relative
	// timestamps in the returned segments) with the decoding knobs
	// fixed by spec.md §6, using initialPrompt as session context.
	Transcribe(ctx context.Context, window []float32, initialPrompt string) ([]Segment, error)
}
