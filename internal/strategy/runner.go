package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/placeholder"
	"github.com/valpere/humanizer/internal/postprocess"
)

// Checker inspects a finished rewrite. A non-nil error rejects it; the
// rejection is retryable unless marked Permanent.
type Checker interface {
	Check(source, rewritten string) error
}

// Runner invokes strategies for single chunks. It holds no per-chunk state
// and is safe for concurrent use.
type Runner struct {
	registry *Registry
	timeout  time.Duration
	checker  Checker
	logger   *zap.Logger
}

type RunnerOption func(*Runner)

// WithTimeout bounds every rewrite call. Zero disables the bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// WithChecker validates each rewrite before it is accepted.
func WithChecker(c Checker) RunnerOption {
	return func(r *Runner) { r.checker = c }
}

func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{registry: registry, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup resolves a strategy name without running it.
func (r *Runner) Lookup(name string) (Strategy, error) {
	return r.registry.Get(name)
}

type outcome struct {
	text string
	err  error
}

// Run rewrites chunk with the named strategy at the given level and returns
// the new chunk body. Protected spans are replaced by placeholders for the
// duration of the call and restored afterwards; the chunk's surrounding
// whitespace is preserved. Run never mutates chunk.
func (r *Runner) Run(ctx context.Context, chunk *internal.Chunk, level int, name string) (string, error) {
	s, err := r.registry.Get(name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(chunk.Content) == "" {
		return chunk.Content, nil
	}

	text, markers := placeholder.Protect(chunk.Content, chunk.Context.ProtectedSegments)
	req := Request{Text: text, Level: level, Context: chunk.Context.Clone()}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	// The call runs on its own goroutine so a strategy that ignores its
	// context still cannot hold the chunk past the timeout.
	done := make(chan outcome, 1)
	go func() {
		out, err := s.Rewrite(callCtx, req)
		done <- outcome{text: out, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = outcome{err: callCtx.Err()}
	}

	if res.err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			r.logger.Debug("rewrite timed out",
				zap.String("strategy", name),
				zap.Int("chunk", chunk.Index),
				zap.Duration("timeout", r.timeout))
			return "", fmt.Errorf("%w: strategy %q, chunk %d after %s", ErrTransformationTimeout, name, chunk.Index, r.timeout)
		}
		return "", res.err
	}

	if missing := placeholder.Validate(res.text, markers); len(missing) > 0 {
		return "", fmt.Errorf("%w: chunk %d markers %v", ErrPlaceholderLost, chunk.Index, missing)
	}
	rewritten := postprocess.KeepPadding(chunk.Content, placeholder.Restore(res.text, markers))

	if r.checker != nil {
		if err := r.checker.Check(chunk.Content, rewritten); err != nil {
			return "", fmt.Errorf("rewrite rejected for chunk %d: %w", chunk.Index, err)
		}
	}
	return rewritten, nil
}
