package session

import "errors"

var (
	// ErrTranscriberNotConfigured is returned by New when it is given a
	// nil Transcriber.
	ErrTranscriberNotConfigured = errors.New("transcriber not configured for this session")

	// ErrTranscriptionFailed wraps a transient error from the model
	// adapter (spec.md §7: logged, cycle skipped, buffer preserved).
	ErrTranscriptionFailed = errors.New("speech-to-text transcription failed")
)
