package session

import "strings"

// flatWord is one word (or, for a segment with no word timestamps, the
// whole segment standing in as a single pseudo-word — spec.md §9's
// "segment-level fallback") tagged with the index of the filtered
// segment it came from.
type flatWord struct {
	Word
	segIdx int
}

// filterSegments drops low-confidence segments per spec.md §4.6.A.
func filterSegments(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.NoSpeechProb > 0.8 || s.AvgLogProb < -1.0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// flattenWords lays filtered segments' words out in a single ordered
// sequence for the word-level finalization loop.
func flattenWords(segments []Segment) []flatWord {
	var out []flatWord
	for i, s := range segments {
		if len(s.Words) == 0 {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			out = append(out, flatWord{Word{Start: s.Start, End: s.End, Text: text}, i})
			continue
		}
		for _, w := range s.Words {
			out = append(out, flatWord{w, i})
		}
	}
	return out
}

func windowText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		t := strings.TrimSpace(s.Text)
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func wordCountOf(s string) int {
	return len(strings.Fields(s))
}

func firstSegmentWord(segments []Segment, segIdx int) string {
	if segIdx < 0 || segIdx >= len(segments) {
		return ""
	}
	s := segments[segIdx]
	if len(s.Words) > 0 {
		return s.Words[0].Text
	}
	fields := strings.Fields(s.Text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// finalization is one final result produced mid-cycle by the word-level
// loop, plus the bookkeeping the Finalizer needs to update pace/history.
type finalization struct {
	text          string
	startTimeRel  float64 // utterance-relative (windowOffset + firstWord.start)
	wordCount     int
	durationSecs  float64
	endRel        float64 // w.End + cushion, clamped to window end
}

// incrementalFinalize runs spec.md §4.6.C: it walks the flattened word
// sequence looking for protected sentence splits, returning every
// finalization produced plus the text still pending (the run's
// "remaining") and how far into the window text has been finalized.
func incrementalFinalize(words []flatWord, segments []Segment, windowOffset, totalDuration, wpm float64) (finals []finalization, remaining string, remainingWords []string, remainingStartRel float64, lastFinalizedEndRel float64) {
	var current []string
	sentenceStartRel := 0.0
	haveSentenceStart := false

	minWords := 6
	if wpm < 100 {
		minWords = 12
	}

	for i, fw := range words {
		if !haveSentenceStart {
			sentenceStartRel = fw.Start
			haveSentenceStart = true
		}
		current = append(current, fw.Text)

		strong, soft := classifyStop(fw.Text)
		if !strong && !soft {
			continue
		}

		isStop := false
		isAbsoluteLast := i == len(words)-1

		hasNext := i+1 < len(words)
		var nextStartsWithin0p4 bool
		if hasNext {
			nextStartsWithin0p4 = (words[i+1].Start - fw.End) < 0.4
		}

		switch {
		case hasNext && nextStartsWithin0p4:
			isStop = false
		case strong:
			silenceAtEdge := totalDuration - (windowOffset + fw.End)
			if isAbsoluteLast {
				need := 0.8
				if len(current) < minWords {
					need = 1.5
					if wpm < 100 {
						need = 2.5
					}
				}
				isStop = silenceAtEdge >= need
			} else {
				next := words[i+1]
				var continuationWord string
				if next.segIdx != fw.segIdx {
					continuationWord = firstSegmentWord(segments, next.segIdx)
				} else {
					continuationWord = next.Text
				}
				if isContinuationToken(continuationWord) || len(current) < minWords {
					isStop = false
				} else {
					isStop = true
				}
			}
		case soft:
			silenceAtEdge := totalDuration - (windowOffset + fw.End)
			if isAbsoluteLast {
				isStop = silenceAtEdge >= 1.5
			} else {
				isStop = silenceAtEdge >= 1.0
			}
		}

		if !isStop {
			continue
		}

		text := strings.Join(current, " ")
		finals = append(finals, finalization{
			text:         text,
			startTimeRel: windowOffset + sentenceStartRel,
			wordCount:    len(current),
			durationSecs: max(0.1, fw.End-sentenceStartRel),
			endRel:       min(totalDuration-windowOffset, fw.End+TailCushion.Seconds()),
		})
		lastFinalizedEndRel = min(totalDuration-windowOffset, fw.End+TailCushion.Seconds())
		current = nil
		haveSentenceStart = false
	}

	remaining = strings.Join(current, " ")
	return finals, remaining, current, sentenceStartRel, lastFinalizedEndRel
}
