// Package session implements the streaming transcription state machine:
// the per-connection pipeline that decides when to invoke the STT model,
// what window of audio to submit, when a phrase is final, and how to adapt
// its timing thresholds to the speaker's pace.
package session

import (
	"strings"
	"time"
)

// Canonical constants (spec.md §6).
const (
	// TargetSampleRate is the canonical rate every sample in an
	// UtteranceBuffer is resampled to.
	TargetSampleRate = 16000

	// TranscribeIntervalSamples is how much new audio must accumulate
	// before a cycle runs (1.0s at TargetSampleRate).
	TranscribeIntervalSamples = TargetSampleRate

	// WindowMaxSeconds is the longest slice of the utterance the model
	// ever sees.
	WindowMaxSeconds = 12.0

	// UtteranceCapSeconds is the hard safety cap on utterance length.
	UtteranceCapSeconds = 30.0

	// RMSThreshold below which a window is considered quiet.
	RMSThreshold = 0.005

	// HistorySize is the number of finalized strings retained for
	// prompt-building.
	HistorySize = 5

	// PromptHistoryCharCap bounds the concatenated history used as a
	// model prompt.
	PromptHistoryCharCap = 500

	// TailCushion is retained after a word-level split to protect the
	// next word's onset.
	TailCushion = 50 * time.Millisecond

	// DefaultWPM is used until enough speech has been finalized to
	// derive a measured pace.
	DefaultWPM = 150.0
)

// PromptPreamble is prefixed to any history before submission as the
// model's initialPrompt (spec.md §6).
const PromptPreamble = "I am transcribing live speech."

// AudioChunk is an input frame as received from the transport layer:
// little-endian float32 PCM at the given source sample rate.
type AudioChunk struct {
	Data       []float32
	SampleRate uint32
}

// TranscriptionResult is one update yielded to the result stream.
type TranscriptionResult struct {
	Text      string
	IsFinal   bool
	StartTime float64 // seconds from session start
}

// Word is a single word with timestamps relative to the window the
// model was given.
type Word struct {
	Start float64 // seconds, relative to window
	End   float64
	Text  string
}

// Segment is one model-returned span of speech, relative to the window.
type Segment struct {
	Start        float64
	End          float64
	Text         string
	AvgLogProb   float64
	NoSpeechProb float64
	Words        []Word
}

// PaceStats tracks the running totals PaceTracker derives WPM from.
type PaceStats struct {
	TotalWordsFinalized int
	TotalSpeechSeconds  float64
}

// WPM returns the session-average words per minute, or DefaultWPM until
// enough speech has been finalized to make the estimate meaningful.
func (p *PaceStats) WPM() float64 {
	if p.TotalSpeechSeconds <= 5 {
		return DefaultWPM
	}
	return float64(p.TotalWordsFinalized) / (p.TotalSpeechSeconds / 60)
}

// Update folds one finalization's word count and duration into the
// running pace totals.
func (p *PaceStats) Update(words int, seconds float64) {
	p.TotalWordsFinalized += words
	if seconds < 0.1 {
		seconds = 0.1
	}
	p.TotalSpeechSeconds += seconds
}

// history is a bounded ring of the last HistorySize finalized strings,
// used by PromptBuilder.
type history struct {
	entries []string
}

func (h *history) push(s string) {
	h.entries = append(h.entries, s)
	if len(h.entries) > HistorySize {
		h.entries = h.entries[len(h.entries)-HistorySize:]
	}
}

// prompt concatenates the retained history (bounded to the last
// PromptHistoryCharCap characters) behind PromptPreamble, matching the
// original source's initial_prompt construction.
func (h *history) prompt() string {
	joined := strings.Join(h.entries, " ")
	if len(joined) > PromptHistoryCharCap {
		joined = joined[len(joined)-PromptHistoryCharCap:]
	}
	joined = strings.TrimSpace(joined)
	if joined == "" {
		return PromptPreamble
	}
	return PromptPreamble + " Context: " + joined
}
