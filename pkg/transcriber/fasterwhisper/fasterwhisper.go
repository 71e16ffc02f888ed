// Package fasterwhisper adapts a self-hosted faster-whisper HTTP
// wrapper to the session.Transcriber interface. The decoding knobs
// below are carried over verbatim from the model.transcribe(...) call
// the original Python server made directly against faster-whisper.
package fasterwhisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lokutor-ai/transcribe-core/pkg/audio"
	"github.com/lokutor-ai/transcribe-core/pkg/session"
)

// vadParameters mirrors vad_parameters=dict(min_silence_duration_ms=500, speech_pad_ms=200).
type vadParameters struct {
	MinSilenceDurationMS int `json:"min_silence_duration_ms"`
	SpeechPadMS          int `json:"speech_pad_ms"`
}

// decodeOptions mirrors the fixed kwargs the original server passed to
// WhisperModel.transcribe on every call.
type decodeOptions struct {
	BeamSize                  int           `json:"beam_size"`
	VADFilter                 bool          `json:"vad_filter"`
	VADParameters             vadParameters `json:"vad_parameters"`
	WordTimestamps            bool          `json:"word_timestamps"`
	NoSpeechThreshold         float64       `json:"no_speech_threshold"`
	LogProbThreshold          float64       `json:"log_prob_threshold"`
	CompressionRatioThreshold float64       `json:"compression_ratio_threshold"`
	ConditionOnPreviousText   bool          `json:"condition_on_previous_text"`
	InitialPrompt             string        `json:"initial_prompt"`
}

func defaultOptions(initialPrompt string) decodeOptions {
	return decodeOptions{
		BeamSize:                  1,
		VADFilter:                 true,
		VADParameters:             vadParameters{MinSilenceDurationMS: 500, SpeechPadMS: 200},
		WordTimestamps:            true,
		NoSpeechThreshold:         0.6,
		LogProbThreshold:          -0.5,
		CompressionRatioThreshold: 2.4,
		ConditionOnPreviousText:   false,
		InitialPrompt:             initialPrompt,
	}
}

// wireSegment/wireWord mirror the JSON shape the wrapper server emits
// for each faster-whisper Segment/Word.
type wireWord struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type wireSegment struct {
	Start        float64    `json:"start"`
	End          float64    `json:"end"`
	Text         string     `json:"text"`
	AvgLogProb   float64    `json:"avg_logprob"`
	NoSpeechProb float64    `json:"no_speech_prob"`
	Words        []wireWord `json:"words"`
}

type wireResponse struct {
	Segments []wireSegment `json:"segments"`
}

// HTTPTranscriber calls a self-hosted faster-whisper HTTP wrapper.
// The wrapper is expected to accept a multipart form with a "audio"
// WAV file field and a "options" JSON field, and to respond with
// wireResponse.
type HTTPTranscriber struct {
	Endpoint string
	Client   *http.Client
}

// New returns an HTTPTranscriber posting to endpoint, using client if
// non-nil or a 30s-timeout default otherwise.
func New(endpoint string, client *http.Client) *HTTPTranscriber {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTranscriber{Endpoint: endpoint, Client: client}
}

// Transcribe implements session.Transcriber.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, window []float32, initialPrompt string) ([]session.Segment, error) {
	wav := audio.NewWavBufferFromFloat32(window, session.TargetSampleRate)
	opts, err := json.Marshal(defaultOptions(initialPrompt))
	if err != nil {
		return nil, fmt.Errorf("fasterwhisper: marshal options: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "window.wav")
	if err != nil {
		return nil, fmt.Errorf("fasterwhisper: create audio part: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("fasterwhisper: write audio part: %w", err)
	}
	if err := mw.WriteField("options", string(opts)); err != nil {
		return nil, fmt.Errorf("fasterwhisper: write options field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("fasterwhisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("fasterwhisper: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", session.ErrTranscriptionFailed, resp.StatusCode, payload)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", session.ErrTranscriptionFailed, err)
	}

	return toSegments(wire), nil
}

func toSegments(wire wireResponse) []session.Segment {
	out := make([]session.Segment, len(wire.Segments))
	for i, s := range wire.Segments {
		words := make([]session.Word, len(s.Words))
		for j, w := range s.Words {
			words[j] = session.Word{Start: w.Start, End: w.End, Text: w.Text}
		}
		out[i] = session.Segment{
			Start:        s.Start,
			End:          s.End,
			Text:         s.Text,
			AvgLogProb:   s.AvgLogProb,
			NoSpeechProb: s.NoSpeechProb,
			Words:        words,
		}
	}
	return out
}
