// Package reasoning removes model-internal deliberation segments from completions.
//
// Reasoning models (Qwen3, DeepSeek-R1, Nemotron, ...) wrap their chain of thought in
// <think>...</think> or <thinking>...</thinking>. The two spellings are synonyms and may
// be mixed. Output can also be cut off on either side of a block, so Strip handles
// a missing opener and a missing closer as well as stray tags.
package reasoning

import (
	"regexp"
	"strings"
)

var (
	blockRegexp     = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)
	openRegexp      = regexp.MustCompile(`<think(?:ing)?>`)
	closeRegexp     = regexp.MustCompile(`</think(?:ing)?>`)
	delimiterRegexp = regexp.MustCompile(`</?think(?:ing)?>`)
)

// Strip returns raw with all reasoning content removed and surrounding whitespace trimmed.
//
// Rules are applied in order:
//  1. well-formed blocks are removed including their delimiters
//  2. with a closing delimiter left, everything up to and including the first one is dropped
//  3. with an opening delimiter left, everything from the first one to the end is dropped
//  4. any remaining delimiter tokens are removed, keeping the surrounding text
func Strip(raw string) string {
	text := blockRegexp.ReplaceAllString(raw, "")

	if loc := closeRegexp.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}

	if loc := openRegexp.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	// removing a token can join its neighbours into a new one
	for delimiterRegexp.MatchString(text) {
		text = delimiterRegexp.ReplaceAllString(text, "")
	}

	return strings.TrimSpace(text)
}

// ContainsDelimiter reports whether text holds any reasoning delimiter token.
func ContainsDelimiter(text string) bool {
	return delimiterRegexp.MatchString(text)
}
