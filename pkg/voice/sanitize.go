package voice

import (
	"regexp"
	"strings"

	"github.com/go-go-golems/jarvis/pkg/reasoning"
)

var (
	// heading and list markers in any order and depth, e.g. "- # 1. "
	linePrefixRegexp = regexp.MustCompile(`(?m)^[ \t]*(?:#+[ \t]*|(?:[-*+•]|\d+[.)])[ \t]+)+`)
	emphasisRegexp   = regexp.MustCompile("\\*+|_+|~~+|`+")
	paragraphRegexp  = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+`)
	spaceRegexp      = regexp.MustCompile(`\s+`)
)

const sentenceEnders = ".!?:;,…"

// SanitizeForSpeech turns a model reply into plain text a synthesizer can read aloud.
//
// Reasoning segments, heading markers, list bullets and emphasis markers are removed.
// Paragraph breaks become sentence pauses, and all remaining whitespace collapses to
// single spaces. The result is trimmed and SanitizeForSpeech(SanitizeForSpeech(x)) equals
// SanitizeForSpeech(x).
func SanitizeForSpeech(text string) string {
	// the first pass leaves a single line, later passes can only remove characters
	for {
		next := sanitizePass(text)
		if next == text {
			return text
		}
		text = next
	}
}

func sanitizePass(text string) string {
	text = reasoning.Strip(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	// markers go before emphasis, "* item" would otherwise lose its star and keep the space
	text = linePrefixRegexp.ReplaceAllString(text, "")
	text = emphasisRegexp.ReplaceAllString(text, "")

	paragraphs := paragraphRegexp.Split(text, -1)
	kept := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	for i := 0; i < len(kept)-1; i++ {
		if !endsSentence(kept[i]) {
			kept[i] += "."
		}
	}
	text = strings.Join(kept, " ")

	text = spaceRegexp.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func endsSentence(s string) bool {
	r := []rune(s)
	if len(r) == 0 {
		return true
	}
	return strings.ContainsRune(sentenceEnders, r[len(r)-1])
}
