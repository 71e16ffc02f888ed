package wire

import (
	"testing"

	"github.com/lokutor-ai/transcribe-core/pkg/session"
)

func TestAudioChunkRoundTrip(t *testing.T) {
	in := session.AudioChunk{Data: []float32{0.1, -0.25, 0.5, -1.0}, SampleRate: 16000}
	frame := EncodeAudioChunk(in)
	out, err := DecodeAudioChunk(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SampleRate != in.SampleRate {
		t.Errorf("sample rate: expected %d, got %d", in.SampleRate, out.SampleRate)
	}
	if len(out.Data) != len(in.Data) {
		t.Fatalf("expected %d samples, got %d", len(in.Data), len(out.Data))
	}
	for i := range in.Data {
		if out.Data[i] != in.Data[i] {
			t.Errorf("sample %d: expected %v, got %v", i, in.Data[i], out.Data[i])
		}
	}
}

func TestDecodeAudioChunkShortFrame(t *testing.T) {
	if _, err := DecodeAudioChunk([]byte{1, 2}); err != ErrShortFrame {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestResultRoundTrip(t *testing.T) {
	in := session.TranscriptionResult{Text: "hello world", IsFinal: true, StartTime: 12.5}
	data, err := EncodeResult(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := DecodeResult(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}
