package session

import "testing"

func TestFilterSegmentsDropsLowConfidence(t *testing.T) {
	in := []Segment{
		{Text: "kept", AvgLogProb: -0.2, NoSpeechProb: 0.1},
		{Text: "no speech", AvgLogProb: -0.2, NoSpeechProb: 0.95},
		{Text: "garbled", AvgLogProb: -2.0, NoSpeechProb: 0.1},
	}
	out := filterSegments(in)
	if len(out) != 1 || out[0].Text != "kept" {
		t.Fatalf("expected only 'kept' to survive, got %+v", out)
	}
}

func TestFlattenWordsSegmentFallback(t *testing.T) {
	in := []Segment{
		{Start: 0, End: 1.2, Text: "no word timestamps here"},
	}
	out := flattenWords(in)
	if len(out) != 1 {
		t.Fatalf("expected one pseudo-word, got %d", len(out))
	}
	if out[0].Text != "no word timestamps here" {
		t.Errorf("expected pseudo-word to carry the whole segment text, got %q", out[0].Text)
	}
}

func TestFlattenWordsUsesWordTimestamps(t *testing.T) {
	in := []Segment{
		{Words: []Word{{Text: "hi", Start: 0, End: 0.2}, {Text: "there", Start: 0.2, End: 0.5}}},
	}
	out := flattenWords(in)
	if len(out) != 2 || out[1].Text != "there" {
		t.Fatalf("expected per-word entries, got %+v", out)
	}
}

func TestWindowTextJoinsSegments(t *testing.T) {
	in := []Segment{{Text: " Hello "}, {Text: "world."}}
	if got := windowText(in); got != "Hello world." {
		t.Errorf("expected joined text, got %q", got)
	}
}

func buildWords(texts []string, starts, ends []float64, segIdx []int) []flatWord {
	out := make([]flatWord, len(texts))
	for i := range texts {
		out[i] = flatWord{Word{Start: starts[i], End: ends[i], Text: texts[i]}, segIdx[i]}
	}
	return out
}

func TestIncrementalFinalizeProtectedSplit(t *testing.T) {
	texts := []string{"The", "quick", "brown", "fox", "jumps", "over.", "Dogs"}
	starts := []float64{0, 0.3, 0.6, 0.9, 1.2, 1.5, 3.0}
	ends := []float64{0.3, 0.6, 0.9, 1.2, 1.5, 2.0, 3.3}
	segIdx := []int{0, 0, 0, 0, 0, 0, 1}
	words := buildWords(texts, starts, ends, segIdx)
	segments := []Segment{
		{Start: 0, End: 2.0, Text: "The quick brown fox jumps over."},
		{Start: 3.0, End: 3.3, Text: "Dogs"},
	}

	finals, remaining, remainingWords, remainingStartRel, lastEnd := incrementalFinalize(words, segments, 0, 10.0, 150)

	if len(finals) != 1 {
		t.Fatalf("expected exactly one protected split, got %d: %+v", len(finals), finals)
	}
	if finals[0].text != "The quick brown fox jumps over." {
		t.Errorf("unexpected finalized text: %q", finals[0].text)
	}
	if finals[0].wordCount != 6 {
		t.Errorf("expected wordCount=6, got %d", finals[0].wordCount)
	}
	if remaining != "Dogs" {
		t.Errorf("expected remaining leftover 'Dogs', got %q", remaining)
	}
	if len(remainingWords) != 1 || remainingWords[0] != "Dogs" {
		t.Errorf("unexpected remainingWords: %v", remainingWords)
	}
	if remainingStartRel != 3.0 {
		t.Errorf("expected remainingStartRel=3.0, got %v", remainingStartRel)
	}
	if lastEnd <= 2.0 {
		t.Errorf("expected lastFinalizedEndRel to include the tail cushion past 2.0, got %v", lastEnd)
	}
}

func TestIncrementalFinalizeContinuousSpeechNotSplit(t *testing.T) {
	// "done." is immediately followed (<0.4s gap) by the next word, so
	// this must NOT be treated as a sentence boundary even though it
	// carries strong punctuation.
	texts := []string{"done.", "right"}
	starts := []float64{0, 0.5}
	ends := []float64{0.5, 0.9}
	segIdx := []int{0, 0}
	words := buildWords(texts, starts, ends, segIdx)
	segments := []Segment{{Start: 0, End: 0.9, Text: "done. right"}}

	finals, remaining, _, _, _ := incrementalFinalize(words, segments, 0, 5.0, 150)
	if len(finals) != 0 {
		t.Fatalf("expected no split across a continuous (<0.4s gap) boundary, got %+v", finals)
	}
	if remaining != "done. right" {
		t.Errorf("expected both words still pending, got %q", remaining)
	}
}

func TestIncrementalFinalizeContinuationTokenSuppressesSplit(t *testing.T) {
	texts := []string{"The", "quick", "brown", "fox", "jumps", "over.", "and"}
	starts := []float64{0, 0.3, 0.6, 0.9, 1.2, 1.5, 3.0}
	ends := []float64{0.3, 0.6, 0.9, 1.2, 1.5, 2.0, 3.3}
	segIdx := []int{0, 0, 0, 0, 0, 0, 1}
	words := buildWords(texts, starts, ends, segIdx)
	segments := []Segment{
		{Start: 0, End: 2.0, Text: "The quick brown fox jumps over."},
		{Start: 3.0, End: 3.3, Text: "and"},
	}

	finals, remaining, _, _, _ := incrementalFinalize(words, segments, 0, 10.0, 150)
	if len(finals) != 0 {
		t.Fatalf("expected the continuation token 'and' to suppress the split, got %+v", finals)
	}
	if remaining != "The quick brown fox jumps over. and" {
		t.Errorf("expected the sentence to keep accumulating, got %q", remaining)
	}
}
