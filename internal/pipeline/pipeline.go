// Package pipeline drives one document through split, context threading,
// per-chunk rewrite with retry, progress reporting and in-order reassembly.
//
// A run has a single owner goroutine. Strategy calls for up to Concurrency
// chunks may be in flight at once, but their results are applied to the
// chunk array and folded into the job's context strictly in index order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/chunker"
	"github.com/valpere/humanizer/internal/document"
	"github.com/valpere/humanizer/internal/markdown"
	"github.com/valpere/humanizer/internal/preserver"
	"github.com/valpere/humanizer/internal/progress"
	"github.com/valpere/humanizer/internal/strategy"
)

const (
	DefaultMaxChunkChars = 2000
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 500 * time.Millisecond
)

type Config struct {
	MaxChunkChars int           `mapstructure:"max_chunk_chars"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Concurrency   int           `mapstructure:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		MaxChunkChars: DefaultMaxChunkChars,
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		Concurrency:   1,
	}
}

// Checkpoint is the persisted outcome of one completed chunk. ContentHash
// ties it to the exact source text it was produced from.
type Checkpoint struct {
	Index       int
	ContentHash string
	Transformed string
	Declined    bool
	Attempts    int
}

// Checkpointer persists completed chunks so an interrupted job can resume
// without reprocessing them.
type Checkpointer interface {
	LoadCheckpoints(ctx context.Context, jobID string) ([]Checkpoint, error)
	SaveCheckpoint(ctx context.Context, jobID string, cp Checkpoint) error
}

type Pipeline struct {
	runner       *strategy.Runner
	cfg          Config
	logger       *zap.Logger
	checkpoints  Checkpointer
	preserverOpt []preserver.Option
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithCheckpointer(c Checkpointer) Option {
	return func(p *Pipeline) { p.checkpoints = c }
}

// WithPreserverOptions configures the context preserver created for each run.
func WithPreserverOptions(opts ...preserver.Option) Option {
	return func(p *Pipeline) { p.preserverOpt = opts }
}

func New(runner *strategy.Runner, cfg Config, opts ...Option) *Pipeline {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RetryDelay < time.Millisecond {
		cfg.RetryDelay = time.Millisecond
	}
	p := &Pipeline{runner: runner, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// outcome is the result of one chunk's strategy calls, retries included.
type outcome struct {
	index     int
	text      string
	attempts  int
	err       error
	declined  bool
	cancelled bool
	restored  bool
}

// run is the owner-side state of a single job.
type run struct {
	*Pipeline
	jobID    string
	settings internal.TransformSettings
	tracker  *progress.Tracker
	ctx      *preserver.Preserver
	chunks   []internal.Chunk
	logger   *zap.Logger

	failed   bool
	firstErr error
}

// Run rewrites doc and returns the reassembled result. The returned error is
// non-nil only when the job failed; a cancelled job returns its partial
// result with a nil error. Fatal errors still return a Result carrying
// everything completed so far.
func (p *Pipeline) Run(ctx context.Context, jobID string, doc internal.Document, settings internal.TransformSettings, tracker *progress.Tracker) (*Result, error) {
	logger := p.logger.With(zap.String("job_id", jobID))

	fail := func(err error) (*Result, error) {
		logger.Error("job aborted", zap.Error(err))
		tracker.Finish(internal.JobFailed)
		return &Result{
			JobID:    jobID,
			Status:   internal.JobFailed,
			Output:   doc.Text,
			Progress: tracker.Snapshot(),
			Err:      err,
		}, err
	}

	if err := settings.Validate(); err != nil {
		return fail(fmt.Errorf("invalid settings: %w", err))
	}
	if _, err := p.runner.Lookup(settings.Strategy); err != nil {
		return fail(err)
	}
	chunks, err := chunker.Split(doc, p.cfg.MaxChunkChars)
	if err != nil {
		return fail(err)
	}

	r := &run{
		Pipeline: p,
		jobID:    jobID,
		settings: settings,
		tracker:  tracker,
		ctx:      preserver.New(p.preserverOpt...),
		chunks:   chunks,
		logger:   logger,
	}

	profileText := doc.Text
	if doc.Markdown {
		profileText = markdown.ToPlainText([]byte(doc.Text))
	}
	r.ctx.BuildStyleProfile(profileText)

	tracker.Begin(len(chunks))
	logger.Info("job started",
		zap.Int("chunks", len(chunks)),
		zap.String("strategy", settings.Strategy),
		zap.Int("level", settings.Level),
		zap.Int("concurrency", p.cfg.Concurrency))

	r.restore(ctx)
	r.loop(ctx)
	return r.finish(), r.firstErr
}

// restore marks chunks whose checkpoint still matches their content as
// completed. Load failures are logged and the job runs from scratch.
func (r *run) restore(ctx context.Context) {
	if r.checkpoints == nil || len(r.chunks) == 0 {
		return
	}
	saved, err := r.checkpoints.LoadCheckpoints(ctx, r.jobID)
	if err != nil {
		r.logger.Warn("failed to load checkpoints", zap.Error(err))
		return
	}
	restored := 0
	for _, cp := range saved {
		if cp.Index < 0 || cp.Index >= len(r.chunks) {
			continue
		}
		c := &r.chunks[cp.Index]
		if document.Hash(c.Content) != cp.ContentHash {
			continue
		}
		c.Status = internal.ChunkCompleted
		c.Transformed = cp.Transformed
		c.Declined = cp.Declined
		c.Attempts = cp.Attempts
		restored++
	}
	if restored > 0 {
		r.logger.Info("resumed from checkpoints", zap.Int("restored", restored))
	}
}

// loop is the single sequence point of the job: it dispatches chunks into a
// bounded lookahead window, buffers out-of-order results and applies them in
// index order.
func (r *run) loop(ctx context.Context) {
	n := len(r.chunks)
	results := make(chan outcome, r.cfg.Concurrency)
	ready := make(map[int]outcome)
	next, applied, inFlight := 0, 0, 0
	stopping := false

	applyReady := func() {
		for {
			o, ok := ready[applied]
			if !ok {
				return
			}
			delete(ready, applied)
			if !r.apply(ctx, o) {
				stopping = true
			}
			applied++
		}
	}

	for applied < n {
		for !stopping && next < n && inFlight < r.cfg.Concurrency {
			if r.tracker.Cancelled() || ctx.Err() != nil {
				stopping = true
				r.logger.Info("cancellation observed", zap.Int("next_chunk", next))
				break
			}
			c := &r.chunks[next]
			if c.Status == internal.ChunkCompleted {
				ready[next] = outcome{index: next, restored: true, attempts: c.Attempts}
				next++
				applyReady()
				continue
			}
			if next == 0 {
				r.ctx.PrepareChunkContext(c, nil)
			} else {
				r.ctx.Attach(c)
			}
			c.Status = internal.ChunkProcessing
			r.tracker.OnChunkStart(next)

			inFlight++
			go func(c internal.Chunk) {
				results <- r.process(ctx, c)
			}(*c)
			next++
		}

		applyReady()
		if applied >= n || inFlight == 0 && (stopping || next >= n) {
			break
		}
		if inFlight == 0 {
			continue
		}
		o := <-results
		inFlight--
		ready[o.index] = o
		// Apply before the next dispatch so its context includes o and a
		// failure stops further dispatch.
		applyReady()
	}
}

// process runs one chunk with retries. It executes off the owner goroutine
// and only touches its own copy of the chunk.
func (r *run) process(ctx context.Context, c internal.Chunk) outcome {
	o := outcome{index: c.Index}
	backoff := retry.WithMaxRetries(uint64(r.cfg.MaxRetries), retry.NewConstant(r.cfg.RetryDelay))

	text, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (string, error) {
		o.attempts++
		out, err := r.runner.Run(ctx, &c, r.settings.Level, r.settings.Strategy)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, strategy.ErrDeclined) || strategy.IsPermanent(err) || ctx.Err() != nil {
			return "", err
		}
		r.logger.Warn("chunk attempt failed",
			zap.Int("chunk", c.Index),
			zap.Int("attempt", o.attempts),
			zap.Error(err))
		return "", retry.RetryableError(err)
	})

	switch {
	case err == nil:
		o.text = text
	case errors.Is(err, strategy.ErrDeclined):
		o.declined = true
	case ctx.Err() != nil:
		o.cancelled = true
	case strategy.IsPermanent(err):
		o.err = &ChunkError{Index: c.Index, Err: err}
	default:
		o.err = &MaxRetriesError{Index: c.Index, Attempts: o.attempts, Err: err}
	}
	return o
}

// apply records an outcome on the owner goroutine. It reports whether the
// job may keep dispatching.
func (r *run) apply(ctx context.Context, o outcome) bool {
	c := &r.chunks[o.index]
	c.Attempts = o.attempts

	switch {
	case o.restored:
	case o.cancelled:
		c.Status = internal.ChunkPending
		return false
	case o.err != nil:
		c.Status = internal.ChunkFailed
		r.tracker.OnChunkFailed(o.index)
		r.logger.Error("chunk failed", zap.Int("chunk", o.index), zap.Int("attempts", o.attempts), zap.Error(o.err))
		if !r.failed {
			r.failed = true
			r.firstErr = o.err
		}
		return false
	default:
		c.Status = internal.ChunkCompleted
		c.Declined = o.declined
		c.Transformed = o.text
		r.save(ctx, c)
		if o.declined {
			r.logger.Debug("chunk declined", zap.Int("chunk", o.index))
		}
	}

	r.tracker.OnChunkComplete(o.index)
	// Chunks after a failure keep their output but no longer feed the
	// shared context.
	if !r.failed {
		r.ctx.Fold(c)
	}
	return true
}

func (r *run) save(ctx context.Context, c *internal.Chunk) {
	if r.checkpoints == nil {
		return
	}
	cp := Checkpoint{
		Index:       c.Index,
		ContentHash: document.Hash(c.Content),
		Transformed: c.Transformed,
		Declined:    c.Declined,
		Attempts:    c.Attempts,
	}
	// Checkpoints outlive a cancelled run.
	if err := r.checkpoints.SaveCheckpoint(context.WithoutCancel(ctx), r.jobID, cp); err != nil {
		r.logger.Warn("failed to save checkpoint", zap.Int("chunk", c.Index), zap.Error(err))
	}
}

func (r *run) finish() *Result {
	status := internal.JobCompleted
	for i := range r.chunks {
		if r.chunks[i].Status != internal.ChunkCompleted {
			status = internal.JobCancelled
			break
		}
	}
	switch {
	case r.failed:
		status = internal.JobFailed
	case status == internal.JobCancelled:
		r.tracker.OnCancelled()
	}
	r.tracker.Finish(status)

	res := &Result{
		JobID:    r.jobID,
		Status:   status,
		Output:   chunker.Join(r.chunks),
		Chunks:   r.chunks,
		Metrics:  sentenceMetrics(r.chunks),
		Progress: r.tracker.Snapshot(),
		Err:      r.firstErr,
	}
	r.logger.Info("job finished",
		zap.String("status", string(status)),
		zap.Int("completed", res.Progress.CompletedChunks),
		zap.Int("failed", res.Progress.FailedChunks),
		zap.Int("total", res.Progress.TotalChunks))
	return res
}
