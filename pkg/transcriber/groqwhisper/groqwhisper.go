// Package groqwhisper adapts the Groq-hosted whisper-large-v3-turbo
// endpoint to the session.Transcriber interface, requesting word-level
// timestamps via verbose_json so the SegmentAnalyzer can run its
// word-level protected-split logic against hosted inference too.
package groqwhisper

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

// DefaultEndpoint is the Groq audio transcriptions API.
const DefaultEndpoint = "https://api.groq.com/openai/v1/audio/transcriptions"

const DefaultModel = "whisper-large-v3-turbo"

type wireWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type wireSegment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	AvgLogprob   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

type wireResponse struct {
	Text     string        `json:"text"`
	Segments []wireSegment `json:"segments"`
	Words    []wireWord    `json:"words"`
}

// Transcriber calls the Groq audio transcriptions API (or an
// API-compatible endpoint, useful for tests).
type Transcriber struct {
	APIKey   string
	Model    string
	Endpoint string
	Client   *http.Client
}

// New returns a Transcriber using model (DefaultModel if empty) and
// client (a 30s-timeout default if nil).
func New(apiKey, model string, client *http.Client) *Transcriber {
	if model == "" {
		model = DefaultModel
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transcriber{APIKey: apiKey, Model: model, Endpoint: DefaultEndpoint, Client: client}
}

// Transcribe implements session.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, window []float32, initialPrompt string) ([]session.Segment, error) {
	wav := audio.NewWavBufferFromFloat32(window, session.TargetSampleRate)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "window.wav")
	if err != nil {
		return nil, fmt.Errorf("groqwhisper: create file part: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("groqwhisper: write file part: %w", err)
	}
	_ = mw.WriteField("model", t.Model)
	_ = mw.WriteField("response_format", "verbose_json")
	_ = mw.WriteField("timestamp_granularities[]", "word")
	_ = mw.WriteField("timestamp_granularities[]", "segment")
	if initialPrompt != "" {
		_ = mw.WriteField("prompt", initialPrompt)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("groqwhisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("groqwhisper: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.APIKey)

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

// toSegments distributes the flat top-level word list Groq returns
// back onto their owning segments by timestamp overlap, since Groq's
// verbose_json (unlike faster-whisper) does not nest words under segments.
func toSegments(wire wireResponse) []session.Segment {
	out := make([]session.Segment, len(wire.Segments))
	for i, s := range wire.Segments {
		out[i] = session.Segment{
			Start:        s.Start,
			End:          s.End,
			Text:         s.Text,
			AvgLogProb:   s.AvgLogprob,
			NoSpeechProb: s.NoSpeechProb,
		}
	}
	for _, w := range wire.Words {
		mid := (w.Start + w.End) / 2
		idx := segmentContaining(out, mid)
		if idx < 0 {
			continue
		}
		out[idx].Words = append(out[idx].Words, session.Word{Start: w.Start, End: w.End, Text: w.Word})
	}
	return out
}

func segmentContaining(segments []session.Segment, t float64) int {
	for i, s := range segments {
		if t >= s.Start && t <= s.End {
			return i
		}
	}
	return -1
}
