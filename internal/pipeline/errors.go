package pipeline

import (
	"errors"
	"fmt"

	"github.com/valpere/humanizer/internal/chunker"
	"github.com/valpere/humanizer/internal/strategy"
)

// Re-exported so callers can match every pipeline failure from one package.
var (
	ErrChunkSplit            = chunker.ErrChunkSplit
	ErrStrategyNotFound      = strategy.ErrStrategyNotFound
	ErrTransformationTimeout = strategy.ErrTransformationTimeout
)

// ErrMaxRetriesExceeded is matched by MaxRetriesError.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// MaxRetriesError reports a chunk whose retry budget ran out. The job fails
// but keeps every chunk completed before it.
type MaxRetriesError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("chunk %d failed after %d attempts: %v", e.Index, e.Attempts, e.Err)
}

func (e *MaxRetriesError) Unwrap() []error {
	return []error{ErrMaxRetriesExceeded, e.Err}
}

// ChunkError reports a chunk that failed with a non-retryable error.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d failed: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }
