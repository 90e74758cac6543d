// Package document validates and derives protected segments for an input
// document. Segments are half-open rune ranges; every helper here returns
// them sorted by Start with no overlaps.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/valpere/humanizer/internal"
)

// ErrInvalidSegment is wrapped by every segment validation failure.
var ErrInvalidSegment = errors.New("invalid protected segment")

var (
	// fenced code blocks: ```...``` (non-greedy, may span lines)
	reFencedCode = regexp.MustCompile("(?s)```.*?```")

	// inline code spans: `...`
	reInlineCode = regexp.MustCompile("`[^`]+`")

	// HTML/XML tags: opening, closing, and self-closing
	reHTMLTag = regexp.MustCompile(`<[^>]+>`)
)

// New builds a Document and validates its protected segments.
func New(text string, protected []internal.Segment) (internal.Document, error) {
	segs, err := Normalize(utf8.RuneCountInString(text), protected)
	if err != nil {
		return internal.Document{}, err
	}
	return internal.Document{Text: text, Protected: segs}, nil
}

// Normalize returns a sorted copy of segs after checking that every segment is
// non-empty, inside [0, textLen] and disjoint from the others. Touching
// segments (a.End == b.Start) are allowed.
func Normalize(textLen int, segs []internal.Segment) ([]internal.Segment, error) {
	if len(segs) == 0 {
		return nil, nil
	}
	out := append([]internal.Segment(nil), segs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start == out[j].Start {
			return out[i].End < out[j].End
		}
		return out[i].Start < out[j].Start
	})
	for i, s := range out {
		if s.Start < 0 || s.End > textLen {
			return nil, fmt.Errorf("%w: [%d,%d) outside document of %d characters", ErrInvalidSegment, s.Start, s.End, textLen)
		}
		if s.Start >= s.End {
			return nil, fmt.Errorf("%w: [%d,%d) is empty", ErrInvalidSegment, s.Start, s.End)
		}
		if i > 0 && s.Start < out[i-1].End {
			return nil, fmt.Errorf("%w: [%d,%d) overlaps [%d,%d)", ErrInvalidSegment, s.Start, s.End, out[i-1].Start, out[i-1].End)
		}
	}
	return out, nil
}

// Merge unions several segment lists, coalescing any overlaps so the result is
// always valid input for Normalize.
func Merge(lists ...[]internal.Segment) []internal.Segment {
	var all []internal.Segment
	for _, l := range lists {
		all = append(all, l...)
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	merged := []internal.Segment{all[0]}
	for _, s := range all[1:] {
		last := &merged[len(merged)-1]
		if s.Start < last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// FindTerms returns a segment for every occurrence of every term in text.
// Matching is case-sensitive; terms are NFC-normalised, so text should be too.
func FindTerms(text string, terms []string) []internal.Segment {
	var segs []internal.Segment
	for _, term := range terms {
		term = norm.NFC.String(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		for off := 0; off < len(text); {
			i := strings.Index(text[off:], term)
			if i < 0 {
				break
			}
			start := off + i
			end := start + len(term)
			segs = append(segs, byteSpan(text, start, end))
			off = end
		}
	}
	return Merge(segs)
}

// DetectMarkup protects structured markup that a rewrite must not touch:
// fenced code blocks, inline code spans and HTML tags.
func DetectMarkup(text string) []internal.Segment {
	var segs []internal.Segment
	// Order matters: fenced first (longest match), then inline, then HTML tags.
	for _, re := range []*regexp.Regexp{reFencedCode, reInlineCode, reHTMLTag} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			segs = append(segs, byteSpan(text, loc[0], loc[1]))
		}
	}
	return Merge(segs)
}

// Relative clips segs to the window [start, end) and rebases them to start.
// Segments that only partially overlap the window are clipped.
func Relative(segs []internal.Segment, start, end int) []internal.Segment {
	var out []internal.Segment
	for _, s := range segs {
		if s.End <= start || s.Start >= end {
			continue
		}
		rs := internal.Segment{Start: max(s.Start, start) - start, End: min(s.End, end) - start}
		out = append(out, rs)
	}
	return out
}

func byteSpan(text string, start, end int) internal.Segment {
	rs := utf8.RuneCountInString(text[:start])
	return internal.Segment{Start: rs, End: rs + utf8.RuneCountInString(text[start:end])}
}

// Hash fingerprints text for checkpoint matching. Canonically equivalent
// Unicode spellings hash the same.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(norm.NFC.String(text)))
	return hex.EncodeToString(sum[:])
}
