// Package chunker splits a document into bounded, ordered chunks while
// preserving sentence and paragraph integrity and never cutting through a
// protected segment. Splitting is lossless: concatenating the chunk contents
// in index order reproduces the input exactly.
package chunker

import (
	"errors"
	"fmt"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/document"
)

// ErrChunkSplit is matched by every error returned from Split.
var ErrChunkSplit = errors.New("chunk split failed")

// SplitError reports malformed protected segments. It is fatal for the job.
type SplitError struct {
	Err error
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("chunk split: %v", e.Err)
}

func (e *SplitError) Unwrap() []error {
	return []error{ErrChunkSplit, e.Err}
}

// Split divides doc into chunks of at most maxChars runes. Cuts are attempted
// (in order of preference) at:
//  1. Paragraph boundaries in the second half of the window
//  2. Sentence boundaries (. ! ? followed by whitespace and an uppercase or quote start)
//  3. Whitespace (word boundary)
//  4. The nearest boundary past the window, producing an oversized chunk
//
// A cut never lands strictly inside a protected segment; the chunk is extended
// to contain the whole segment instead, even past maxChars.
// An empty document yields no chunks. If maxChars ≤ 0 the whole document is a
// single chunk.
func Split(doc internal.Document, maxChars int) ([]internal.Chunk, error) {
	runes := []rune(doc.Text)
	n := len(runes)

	segs, err := document.Normalize(n, doc.Protected)
	if err != nil {
		return nil, &SplitError{Err: err}
	}
	if n == 0 {
		return nil, nil
	}

	sc := newScan(runes, segs)

	var chunks []internal.Chunk
	for pos := 0; pos < n; {
		end := n
		if maxChars > 0 && n-pos > maxChars {
			end = sc.pick(pos, pos+maxChars)
		}
		chunks = append(chunks, internal.Chunk{
			Index:   len(chunks),
			Start:   pos,
			End:     end,
			Content: string(runes[pos:end]),
			Status:  internal.ChunkPending,
			Context: internal.ChunkContext{
				ProtectedSegments: document.Relative(segs, pos, end),
			},
		})
		pos = end
	}
	return chunks, nil
}

// Join concatenates chunk outputs in index order. Chunks must already be
// sorted by Index, which Split guarantees.
func Join(chunks []internal.Chunk) string {
	size := 0
	for i := range chunks {
		size += len(chunks[i].Output())
	}
	buf := make([]byte, 0, size)
	for i := range chunks {
		buf = append(buf, chunks[i].Output()...)
	}
	return string(buf)
}
