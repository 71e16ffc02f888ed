package session

import "strings"

// continuationTokens are words that, when they open the next segment (or
// immediately follow a strong-stop word), signal the sentence is still
// running on rather than genuinely finished (spec.md §4.6.C.3).
var continuationTokens = map[string]bool{
	"when": true, "and": true, "which": true, "but": true, "while": true,
	"that": true, "because": true, "the": true, "a": true,
}

// hallucinationSink is the allow-list of short tokens the model tends to
// invent during silence (spec.md §4.6.D and GLOSSARY).
var hallucinationSink = map[string]bool{
	"please": true, "thanks": true, "thank you": true, "bye": true,
	"you": true, "it": true, "with": true, "the": true,
}

// stripTerminalPunct removes a trailing run of ".", "?", "!", "," ";",
// ":", "-" (and ellipses) from s, for membership tests against the
// lexicon maps above.
func stripTerminalPunct(s string) string {
	return strings.TrimRight(s, ".?!,;:-")
}

func normalizeToken(s string) string {
	return strings.ToLower(stripTerminalPunct(strings.TrimSpace(s)))
}

// classifyStop reports whether word (as returned by the model, possibly
// with trailing punctuation) ends a sentence with strong or soft
// terminal punctuation.
func classifyStop(word string) (strong, soft bool) {
	trimmed := strings.TrimRight(word, " ")
	switch {
	case strings.HasSuffix(trimmed, "..."):
		return true, false
	case strings.HasSuffix(trimmed, "."), strings.HasSuffix(trimmed, "?"), strings.HasSuffix(trimmed, "!"):
		return true, false
	case strings.HasSuffix(trimmed, ","), strings.HasSuffix(trimmed, ";"),
		strings.HasSuffix(trimmed, ":"), strings.HasSuffix(trimmed, "-"):
		return false, true
	default:
		return false, false
	}
}

// endsWithStrongPunct reports whether s (the accumulated window text)
// ends in one of the strong-stop marks, per spec.md §4.6.B.
func endsWithStrongPunct(s string) bool {
	s = strings.TrimRight(s, " ")
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "?") ||
		strings.HasSuffix(s, "!") || strings.HasSuffix(s, "...")
}

func isContinuationToken(word string) bool {
	return continuationTokens[normalizeToken(word)]
}

// isHallucination applies the hallucination-sink rule of spec.md §4.6.D:
// reject single-word remainders on the allow-list, and reject short
// (<3 word) remainders lacking strong punctuation unless totalSilence
// has grown past 1.0s.
func isHallucination(remaining string, wordCount int, strongPunct bool, totalSilence float64) bool {
	trimmed := strings.TrimSpace(remaining)
	if trimmed == "" {
		return false
	}
	if hallucinationSink[normalizeToken(trimmed)] {
		return true
	}
	if wordCount < 3 && !strongPunct && totalSilence <= 1.0 {
		return true
	}
	return false
}
