package session

import (
	"context"
	"time"
)

// Logger is the minimal logging surface the orchestrator needs. It
// mirrors the teacher codebase's own Logger interface so any adapter
// written for that shape (stdlib log, zap, a no-op) works here too.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything; the zero value is ready to use.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{})  {}
func (NoOpLogger) Warn(string, ...interface{})  {}
func (NoOpLogger) Error(string, ...interface{}) {}

// Metrics receives counters for the events an operator would want to
// alert or dashboard on (spec.md §7-EXP). New substitutes NoOpMetrics
// when it is given a nil Metrics.
type Metrics interface {
	ModelInvoked(latency time.Duration)
	ModelError()
	MalformedChunk()
	FinalEmitted()
	HallucinationRejected()
}

// NoOpMetrics discards everything; the zero value is ready to use.
type NoOpMetrics struct{}

func (NoOpMetrics) ModelInvoked(time.Duration) {}
func (NoOpMetrics) ModelError()                {}
func (NoOpMetrics) MalformedChunk()             {}
func (NoOpMetrics) FinalEmitted()               {}
func (NoOpMetrics) HallucinationRejected()      {}

// Orchestrator is the Session Orchestrator of spec.md §4.8: it holds
// all session state, runs the per-chunk loop, owns the RMS counters
// and stall timers, and guarantees no two model invocations overlap
// for the same session (by construction — PushChunk/Finalize are only
// ever called from the single goroutine that owns the session).
type Orchestrator struct {
	sessionID   string
	transcriber Transcriber
	logger      Logger
	metrics     Metrics

	st *state

	loggedZeroRate bool
}

// New creates an Orchestrator for one session. transcriber must not be
// nil (ErrTranscriberNotConfigured otherwise); logger/metrics may be
// nil, in which case no-op implementations are used.
func New(sessionID string, transcriber Transcriber, logger Logger, metrics Metrics) (*Orchestrator, error) {
	if transcriber == nil {
		return nil, ErrTranscriberNotConfigured
	}
	if logger == nil {
		logger = NoOpLogger{}
	}
	if metrics == nil {
		metrics = NoOpMetrics{}
	}
	return &Orchestrator{
		sessionID:   sessionID,
		transcriber: transcriber,
		logger:      logger,
		metrics:     metrics,
		st:          newState(),
	}, nil
}

// PushChunk ingests one AudioChunk: resamples it onto the utterance
// and recording buffers, and — if a full transcribe interval has
// accumulated — runs exactly one analysis cycle (spec.md §4.2). It
// returns every TranscriptionResult produced by that cycle, in
// emission order.
func (o *Orchestrator) PushChunk(ctx context.Context, chunk AudioChunk) ([]TranscriptionResult, error) {
	rate := chunk.SampleRate
	if rate == 0 {
		rate = TargetSampleRate
		if !o.loggedZeroRate {
			o.logger.Warn("unsupported sample rate (<=0), treating as 16kHz", "session", o.sessionID)
			o.loggedZeroRate = true
		}
	}

	samples, hadNonFinite := sanitizeChunk(chunk.Data)
	if hadNonFinite {
		o.logger.Warn("malformed chunk: non-finite samples clamped to silence", "session", o.sessionID)
		o.metrics.MalformedChunk()
	}

	resampled := Resample(samples, rate)
	o.st.buffer.Append(resampled)
	o.st.recording.Append(resampled)
	o.st.samplesSinceLastTranscribe += len(resampled)

	if o.st.samplesSinceLastTranscribe < TranscribeIntervalSamples {
		return nil, nil
	}
	o.st.samplesSinceLastTranscribe = 0

	return o.runCycle(ctx, false)
}

// Finalize runs one forced-finalization analysis pass, per spec.md
// §4.8's end-of-stream handling: any buffered remainder is flushed out
// (subject to the same hallucination sink) rather than silently
// dropped. Callers invoke this once, on client disconnect or
// cancellation, before discarding the Orchestrator.
func (o *Orchestrator) Finalize(ctx context.Context) ([]TranscriptionResult, error) {
	if o.st.buffer.Len() == 0 {
		return nil, nil
	}
	return o.runCycle(ctx, true)
}

// runCycle is the Windower → RMS Gate → STT adapter → SegmentAnalyzer
// chain of spec.md §4.3–§4.6. force bypasses the quiet-gate skip and
// treats the global finalization trigger as already met, matching the
// forced pass spec.md §4.8 requires on stream close.
func (o *Orchestrator) runCycle(ctx context.Context, force bool) ([]TranscriptionResult, error) {
	win := makeWindow(&o.st.buffer)
	windowRMS := rms(win.audio)

	quiet := windowRMS < RMSThreshold
	skipModel := false

	if quiet && !force {
		o.st.consecutiveQuietIntervals++
		capSamples := int(UtteranceCapSeconds * TargetSampleRate)
		if o.st.consecutiveQuietIntervals < 2 && o.st.buffer.Len() < capSamples {
			return nil, nil
		}
		skipModel = true
	} else if !quiet {
		o.st.consecutiveQuietIntervals = 0
	}

	var segments []Segment
	if !skipModel {
		prompt := o.st.hist.prompt()
		start := time.Now()
		segs, err := o.transcriber.Transcribe(ctx, win.audio, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.logger.Warn("transcription error, preserving buffer", "session", o.sessionID, "error", err)
			o.metrics.ModelError()
			return nil, nil
		}
		o.metrics.ModelInvoked(time.Since(start))
		segments = filterSegments(segs)
		o.st.lastSegments = segments
		o.st.lastWindowOffset = win.offsetSeconds
	} else if o.st.lastWindowOffset == win.offsetSeconds {
		// The window hasn't shifted since the last real model call, so
		// the timestamps in the cached transcript still line up —
		// replay it against the now-larger totalDuration so silence
		// and stall triggers keep advancing even while the gate keeps
		// the model quiet.
		segments = o.st.lastSegments
	}

	return o.analyze(segments, win, force), nil
}

// analyze is the SegmentAnalyzer + Finalizer of spec.md §4.6: it walks
// the filtered segments for protected word-level splits, then applies
// the forced-finalization / tail-preservation / emergency-cleanup /
// partial-emission cascade.
func (o *Orchestrator) analyze(segments []Segment, win window, force bool) []TranscriptionResult {
	var results []TranscriptionResult

	wpm := o.st.pace.WPM()
	wtext := windowText(segments)
	strongPunct := endsWithStrongPunct(wtext)
	th := deriveThresholds(wpm, strongPunct, wordCountOf(wtext), win.totalDuration)

	words := flattenWords(segments)
	finals, remaining, remainingWords, remainingStartRel, lastFinalizedEndRel :=
		incrementalFinalize(words, segments, win.offsetSeconds, win.totalDuration, wpm)

	for _, f := range finals {
		silenceAtSplit := win.totalDuration - (win.offsetSeconds + f.endRel)
		if isHallucination(f.text, f.wordCount, endsWithStrongPunct(f.text), silenceAtSplit) {
			o.metrics.HallucinationRejected()
			continue
		}
		startTime := o.st.absoluteStartTime + f.startTimeRel
		results = append(results, TranscriptionResult{Text: f.text, IsFinal: true, StartTime: startTime})
		o.st.pace.Update(f.wordCount, f.durationSecs)
		o.st.hist.push(f.text)
		o.metrics.FinalEmitted()
	}

	if remaining != o.st.lastPartialText {
		o.st.lastPartialText = remaining
		o.st.lastTextChangeTime = win.totalDuration
	}
	totalStall := win.totalDuration - o.st.lastTextChangeTime

	latestSpeechEndRel := 0.0
	for _, s := range segments {
		latestSpeechEndRel = max(latestSpeechEndRel, s.End)
	}
	totalSilence := win.totalDuration - (win.offsetSeconds + latestSpeechEndRel)

	capSamples := int(UtteranceCapSeconds * TargetSampleRate)
	globalTrigger := force || o.st.buffer.Len() >= capSamples || o.st.consecutiveQuietIntervals >= 2
	silenceTrigger := totalSilence >= th.requiredSilence
	stallTrigger := totalStall >= th.stallThreshold && totalSilence >= 0.4

	forcedFinalized := false
	hallucinationRejected := false

	if (globalTrigger || silenceTrigger || stallTrigger) && remaining != "" {
		if isHallucination(remaining, wordCountOf(remaining), strongPunct, totalSilence) {
			hallucinationRejected = true
			o.metrics.HallucinationRejected()
		} else {
			startTime := o.st.absoluteStartTime + win.offsetSeconds
			results = append(results, TranscriptionResult{Text: remaining, IsFinal: true, StartTime: startTime})
			o.metrics.FinalEmitted()

			windowRelDuration := win.totalDuration - win.offsetSeconds
			o.st.pace.Update(len(remainingWords), max(0.1, windowRelDuration-remainingStartRel))
			o.st.hist.push(remaining)

			o.st.absoluteStartTime += win.totalDuration
			o.st.buffer.Reset()
			o.st.lastPartialText = ""
			o.st.lastTextChangeTime = 0
			o.st.lastSegments = nil
			o.st.lastWindowOffset = 0
			forcedFinalized = true
		}
	}

	if !forcedFinalized {
		switch {
		case lastFinalizedEndRel > 0:
			splitSample := int((win.offsetSeconds + lastFinalizedEndRel) * TargetSampleRate)
			o.st.absoluteStartTime += win.offsetSeconds + lastFinalizedEndRel
			o.st.buffer.TruncateToTail(splitSample)
			o.st.lastPartialText = ""
			o.st.lastTextChangeTime = 0
			o.st.lastSegments = nil
			o.st.lastWindowOffset = 0
		case remaining == "" && (globalTrigger || o.st.consecutiveQuietIntervals >= 10):
			o.st.absoluteStartTime += win.totalDuration
			o.st.buffer.Reset()
			o.st.lastPartialText = ""
			o.st.lastTextChangeTime = 0
			o.st.lastSegments = nil
			o.st.lastWindowOffset = 0
		case remaining != "" && !hallucinationRejected:
			results = append(results, TranscriptionResult{
				Text:      remaining,
				IsFinal:   false,
				StartTime: o.st.absoluteStartTime + win.offsetSeconds,
			})
		}
	}

	return results
}

// RecordingSamples returns a copy of the full-session archive
// (SessionState.recordingBuffer). Exporting it is an operator action,
// never invoked by the core pipeline itself (spec.md §1: the automatic
// wave-file dump is out of scope).
func (o *Orchestrator) RecordingSamples() []float32 {
	return o.st.recording.Flatten()
}

// SessionID returns the identifier this Orchestrator was constructed with.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}
