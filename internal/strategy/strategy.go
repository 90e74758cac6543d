// Package strategy defines the pluggable rewrite unit applied to one chunk
// and the runner that invokes it under a per-chunk timeout with protected
// spans shielded by placeholders.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/valpere/humanizer/internal"
)

var (
	// ErrStrategyNotFound is returned for an unregistered strategy name. It is
	// fatal for the job.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrTransformationTimeout is returned when a rewrite exceeds the
	// per-chunk timeout. It is retryable.
	ErrTransformationTimeout = errors.New("transformation timed out")

	// ErrDeclined lets a strategy leave a chunk untransformed without failing
	// the job.
	ErrDeclined = errors.New("strategy declined chunk")

	// ErrPlaceholderLost is returned when a rewrite dropped or duplicated a
	// protected-span marker. It is retryable.
	ErrPlaceholderLost = errors.New("protected span lost in rewrite")
)

// Request is the input of one rewrite call. Text has protected spans already
// replaced by [PHn] markers.
type Request struct {
	Text    string
	Level   int
	Context internal.ChunkContext
}

// Strategy rewrites a single chunk. Implementations must be stateless with
// respect to chunks so that independent chunks can be rewritten concurrently.
type Strategy interface {
	Name() string
	Rewrite(ctx context.Context, req Request) (string, error)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Registry maps strategy names to implementations. It is safe for concurrent
// use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any strategy with the same name.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStrategyNotFound, name)
	}
	return s, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
