// Package postprocess removes common LLM artifacts from rewrite output and
// restores the chunk padding that reassembly depends on.
//
// It is applied to the raw text returned by any LLM-backed strategy (Ollama,
// OpenRouter) before the result is used downstream.
package postprocess

import (
	"regexp"
	"strings"
	"unicode"
)

// Clean removes LLM artifacts from text in three phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Quote wrapping removal, skipped when source itself is wrapped
func Clean(text, source string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	if trimmed := strings.TrimSpace(source); removeQuoteWrapping(trimmed) == trimmed {
		text = removeQuoteWrapping(text)
	}
	return strings.TrimSpace(text)
}

// KeepPadding gives rewritten the leading and trailing whitespace of source.
// Chunks end on whitespace, so reassembly would otherwise glue paragraphs
// together.
func KeepPadding(source, rewritten string) string {
	lead := len(source) - len(strings.TrimLeftFunc(source, unicode.IsSpace))
	trail := len(strings.TrimRightFunc(source, unicode.IsSpace))
	body := strings.TrimSpace(rewritten)
	if lead == len(source) {
		return source + body
	}
	return source[:lead] + body + source[trail:]
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
// Flags: i = case-insensitive, s = dot matches newline.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed not to.  Each pattern is anchored to the start of the string
// and requires a colon to reduce false positives on legitimate content.
var echoPatterns = []*regexp.Regexp{
	// "Here is / Here's [the] [rewritten|humanized|revised] text:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| a)? (?:rewritten |humani[sz]ed |revised |paraphrased )?(?:text|version|passage)\s*:`),
	// "[The] [rewritten|humanized] [text|version]:"
	regexp.MustCompile(`(?i)^(?:the )?(?:rewritten|humani[sz]ed|revised|paraphrased) (?:text|version|passage)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] rewritten text:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the| a)? (?:rewritten |humani[sz]ed |revised |paraphrased )?(?:text|version|passage)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 3: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them (a common LLM artifact).  Supported pairs:
//
//	"…"  '…'  «…»  "…"  '…'
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '\u201C' && last == '\u201D') || // " "
		(first == '\u2018' && last == '\u2019') { //  ' '
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
