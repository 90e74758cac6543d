// Package placeholder shields protected spans during a rewrite by replacing
// them with numbered markers ([PH0], [PH1], …) that rewrite backends are
// instructed to preserve. After the rewrite, Restore substitutes the
// originals back.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/valpere/humanizer/internal"
)

// placeholder reference in rewritten text
var rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)

// Marker returns the placeholder text for index i.
func Marker(i int) string {
	return fmt.Sprintf("[PH%d]", i)
}

// Protect replaces each span of text with a numbered placeholder in order of
// appearance. Spans are rune offsets into text and must be sorted and
// non-overlapping, as produced by the chunker. It returns the modified text
// and the captured originals so Restore can put them back.
func Protect(text string, spans []internal.Segment) (string, []string) {
	if len(spans) == 0 {
		return text, nil
	}
	runes := []rune(text)
	markers := make([]string, 0, len(spans))

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, s := range spans {
		if s.Start < pos || s.End > len(runes) || s.Start >= s.End {
			continue
		}
		b.WriteString(string(runes[pos:s.Start]))
		b.WriteString(Marker(len(markers)))
		markers = append(markers, string(runes[s.Start:s.End]))
		pos = s.End
	}
	b.WriteString(string(runes[pos:]))
	return b.String(), markers
}

// Restore substitutes [PHn] markers in text back with the originals captured
// by Protect. Unrecognised indices leave the placeholder as-is.
func Restore(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint returns a short sentence to append to an LLM prompt so the
// model knows to leave placeholders intact.
func InstructionHint() string {
	return "Preserve all [PHn] markers exactly as they appear. Do not rewrite, move, or remove them."
}

// Validate returns the indices of markers that do not appear exactly once in
// the rewritten text.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if strings.Count(text, Marker(i)) != 1 {
			missing = append(missing, i)
		}
	}
	return missing
}
