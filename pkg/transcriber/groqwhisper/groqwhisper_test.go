package groqwhisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscribeSendsAuthHeaderAndParsesWords(t *testing.T) {
	var gotAuth, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotModel = r.FormValue("model")
		resp := wireResponse{
			Segments: []wireSegment{
				{Start: 0, End: 0.8, Text: "Hello world.", AvgLogprob: -0.1, NoSpeechProb: 0.02},
			},
			Words: []wireWord{
				{Word: "Hello", Start: 0, End: 0.4},
				{Word: "world.", Start: 0.4, End: 0.8},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	tr := New("test-key", "", server.Client())
	tr.Endpoint = server.URL

	segs, err := tr.Transcribe(context.Background(), []float32{0.1, -0.1}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if gotModel != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, gotModel)
	}
	if len(segs) != 1 || len(segs[0].Words) != 2 {
		t.Fatalf("expected words distributed onto the single segment, got %+v", segs)
	}
	if segs[0].Words[1].Text != "world." {
		t.Errorf("unexpected second word: %q", segs[0].Words[1].Text)
	}
}

func TestToSegmentsDistributesByOverlap(t *testing.T) {
	wire := wireResponse{
		Segments: []wireSegment{
			{Start: 0, End: 1.0, Text: "one"},
			{Start: 2.0, End: 3.0, Text: "two"},
		},
		Words: []wireWord{
			{Word: "one", Start: 0, End: 0.5},
			{Word: "two", Start: 2.2, End: 2.6},
			{Word: "orphan", Start: 10, End: 10.1},
		},
	}
	segs := toSegments(wire)
	if len(segs[0].Words) != 1 || segs[0].Words[0].Text != "one" {
		t.Errorf("expected 'one' attached to the first segment, got %+v", segs[0].Words)
	}
	if len(segs[1].Words) != 1 || segs[1].Words[0].Text != "two" {
		t.Errorf("expected 'two' attached to the second segment, got %+v", segs[1].Words)
	}
}

func TestNewDefaultsModelAndEndpoint(t *testing.T) {
	tr := New("key", "", nil)
	if tr.Model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, tr.Model)
	}
	if tr.Endpoint != DefaultEndpoint {
		t.Errorf("expected default endpoint %q, got %q", DefaultEndpoint, tr.Endpoint)
	}
	if tr.Client == nil {
		t.Error("expected a default HTTP client")
	}
}
