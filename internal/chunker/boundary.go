package chunker

import (
	"strings"
	"unicode"

	"github.com/valpere/humanizer/internal"
)

type boundary uint8

const (
	noBoundary boundary = iota
	wordBoundary
	sentenceBoundary
	paragraphBoundary
)

// scan holds per-position cut information for one document. Position i means
// "cut before runes[i]"; positions inside a protected segment are blocked.
type scan struct {
	n       int
	kinds   []boundary
	blocked []bool
}

func newScan(runes []rune, segs []internal.Segment) *scan {
	n := len(runes)
	s := &scan{
		n:       n,
		kinds:   classify(runes),
		blocked: make([]bool, n+1),
	}
	for _, seg := range segs {
		for i := seg.Start + 1; i < seg.End; i++ {
			s.blocked[i] = true
		}
	}
	return s
}

// pick chooses the cut for a chunk starting at pos whose size window ends at
// limit (pos < limit < n).
func (s *scan) pick(pos, limit int) int {
	para, sent, word := -1, -1, -1
	for i := limit; i > pos; i-- {
		if s.blocked[i] {
			continue
		}
		switch s.kinds[i] {
		case paragraphBoundary:
			if para < 0 {
				para = i
			}
			if sent < 0 {
				sent = i
			}
		case sentenceBoundary:
			if sent < 0 {
				sent = i
			}
		case wordBoundary:
			if word < 0 {
				word = i
			}
		}
		if para >= 0 {
			break
		}
	}

	switch {
	case para > pos+(limit-pos)/2:
		return para
	case sent >= 0:
		return sent
	case word >= 0:
		return word
	}

	for i := limit + 1; i < s.n; i++ {
		if !s.blocked[i] && s.kinds[i] != noBoundary {
			return i
		}
	}
	return s.n
}

// classify marks every position where a chunk may end. The whitespace that
// separates two sentences stays with the earlier chunk.
func classify(runes []rune) []boundary {
	n := len(runes)
	kinds := make([]boundary, n+1)
	for i := 1; i < n; i++ {
		if !unicode.IsSpace(runes[i-1]) || unicode.IsSpace(runes[i]) {
			continue
		}
		kinds[i] = wordBoundary

		// walk back over the whitespace run
		j := i - 1
		newlines := 0
		for j >= 0 && unicode.IsSpace(runes[j]) {
			if runes[j] == '\n' {
				newlines++
			}
			j--
		}
		if newlines >= 2 {
			kinds[i] = paragraphBoundary
			continue
		}
		if j >= 0 && endsSentence(runes, j) && startsSentence(runes[i]) {
			kinds[i] = sentenceBoundary
		}
	}
	return kinds
}

// endsSentence reports whether runes[j] closes a sentence, allowing closing
// quotes and brackets after the terminal punctuation.
func endsSentence(runes []rune, j int) bool {
	for j >= 0 && isCloser(runes[j]) {
		j--
	}
	return j >= 0 && isTerminal(runes[j])
}

func startsSentence(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsDigit(r) || isOpeningQuote(r)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '»':
		return true
	}
	return false
}

func isOpeningQuote(r rune) bool {
	switch r {
	case '"', '\'', '“', '‘', '«', '(':
		return true
	}
	return false
}

// Sentences splits text with the same conservative heuristic Split uses.
// Abbreviations such as "Dr." are treated as sentence ends. Each returned
// sentence is trimmed; empty pieces are dropped.
func Sentences(text string) []string {
	runes := []rune(text)
	kinds := classify(runes)

	var out []string
	prev := 0
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[prev:end])); s != "" {
			out = append(out, s)
		}
		prev = end
	}
	for i := 1; i < len(runes); i++ {
		if kinds[i] == sentenceBoundary || kinds[i] == paragraphBoundary {
			emit(i)
		}
	}
	emit(len(runes))
	return out
}
