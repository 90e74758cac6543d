// Package jobs runs pipeline jobs in the background and answers status,
// cancel and wait queries for them. Each job gets its own progress tracker
// and, through the pipeline, its own context preserver.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/pipeline"
	"github.com/valpere/humanizer/internal/progress"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobExists   = errors.New("job already exists")
	ErrClosed      = errors.New("job manager closed")
)

// Status is the externally visible view of one job.
type Status struct {
	JobID                    string             `json:"job_id"`
	Status                   internal.JobStatus `json:"status"`
	Progress                 int                `json:"progress"`
	ChunksProcessed          int                `json:"chunks_processed"`
	TotalChunks              int                `json:"total_chunks"`
	EstimatedTimeRemainingMs *int64             `json:"estimated_time_remaining_ms"`
	SubmittedAt              time.Time          `json:"submitted_at"`
	Error                    string             `json:"error,omitempty"`
}

// Recorder persists job lifecycle changes. Errors are logged, never fatal.
type Recorder interface {
	SaveJob(ctx context.Context, req internal.JobRequest) error
	UpdateJobStatus(ctx context.Context, id string, status internal.JobStatus) error
}

type job struct {
	id          string
	submittedAt time.Time
	tracker     *progress.Tracker
	done        chan struct{}

	// set once before done is closed
	result *pipeline.Result
	err    error
}

type Manager struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
	recorder Recorder
	listener func(internal.JobProgress)
	group    *errgroup.Group

	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithProgressListener receives every progress change of every job.
func WithProgressListener(fn func(internal.JobProgress)) Option {
	return func(m *Manager) { m.listener = fn }
}

// WithMaxJobs limits how many jobs run at once. Submit blocks while the
// limit is reached.
func WithMaxJobs(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.group.SetLimit(n)
		}
	}
}

func NewManager(p *pipeline.Pipeline, opts ...Option) *Manager {
	m := &Manager{
		pipeline: p,
		logger:   zap.NewNop(),
		group:    new(errgroup.Group),
		jobs:     make(map[string]*job),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit starts a job under a fresh id and returns the id.
func (m *Manager) Submit(ctx context.Context, doc internal.Document, settings internal.TransformSettings) (string, error) {
	id := uuid.NewString()
	if err := m.SubmitWithID(ctx, id, doc, settings); err != nil {
		return "", err
	}
	return id, nil
}

// SubmitWithID starts a job under a caller-chosen id, which lets a resumed
// job find its checkpoints. The id must not belong to a job this manager
// still tracks.
func (m *Manager) SubmitWithID(ctx context.Context, id string, doc internal.Document, settings internal.TransformSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	var opts []progress.Option
	if m.listener != nil {
		opts = append(opts, progress.WithListener(m.listener))
	}
	j := &job{
		id:          id,
		submittedAt: time.Now(),
		tracker:     progress.New(id, opts...),
		done:        make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, ok := m.jobs[id]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobExists, id)
	}
	m.jobs[id] = j
	m.mu.Unlock()

	if m.recorder != nil {
		req := internal.JobRequest{
			ID:         id,
			SourceText: doc.Text,
			Strategy:   settings.Strategy,
			Level:      settings.Level,
			Timestamp:  j.submittedAt,
		}
		if err := m.recorder.SaveJob(ctx, req); err != nil {
			m.logger.Warn("failed to record job", zap.String("job_id", id), zap.Error(err))
		}
	}

	// The job outlives the submitting request; only Cancel stops it.
	runCtx := context.WithoutCancel(ctx)
	m.group.Go(func() error {
		m.run(runCtx, j, doc, settings)
		return nil
	})
	m.logger.Info("job submitted", zap.String("job_id", id), zap.String("strategy", settings.Strategy))
	return nil
}

func (m *Manager) run(ctx context.Context, j *job, doc internal.Document, settings internal.TransformSettings) {
	defer close(j.done)

	res, err := m.pipeline.Run(ctx, j.id, doc, settings, j.tracker)
	j.result, j.err = res, err

	if m.recorder != nil {
		if err := m.recorder.UpdateJobStatus(ctx, j.id, j.tracker.Status()); err != nil {
			m.logger.Warn("failed to record job status", zap.String("job_id", j.id), zap.Error(err))
		}
	}
}

func (m *Manager) get(id string) (*job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

// GetStatus reports a job's state. Finished jobs stay queryable.
func (m *Manager) GetStatus(id string) (Status, error) {
	j, err := m.get(id)
	if err != nil {
		return Status{}, err
	}
	return j.status(), nil
}

func (j *job) status() Status {
	snap := j.tracker.Snapshot()
	st := Status{
		JobID:                    j.id,
		Status:                   j.tracker.Status(),
		Progress:                 snap.Percent(),
		ChunksProcessed:          snap.CompletedChunks,
		TotalChunks:              snap.TotalChunks,
		EstimatedTimeRemainingMs: snap.EstimatedRemainingMs,
		SubmittedAt:              j.submittedAt,
	}
	// not split yet
	if st.Status == internal.JobRunning && snap.TotalChunks == 0 {
		st.Progress = 0
	}
	select {
	case <-j.done:
		if j.err != nil {
			st.Error = j.err.Error()
		}
	default:
	}
	return st
}

// Cancel requests cooperative cancellation. Chunks already in flight finish
// first. Cancelling a finished job is acknowledged and changes nothing.
func (m *Manager) Cancel(id string) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	j.tracker.Cancel()
	m.logger.Info("job cancellation requested", zap.String("job_id", id))
	return nil
}

// Wait blocks until the job finishes or ctx is done and returns the job's
// result and pipeline error.
func (m *Manager) Wait(ctx context.Context, id string) (*pipeline.Result, error) {
	j, err := m.get(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// List returns every tracked job in submission order.
func (m *Manager) List() []Status {
	m.mu.Lock()
	all := make([]*job, 0, len(m.jobs))
	for _, j := range m.jobs {
		all = append(all, j)
	}
	m.mu.Unlock()

	sort.Slice(all, func(a, b int) bool {
		if all[a].submittedAt.Equal(all[b].submittedAt) {
			return all[a].id < all[b].id
		}
		return all[a].submittedAt.Before(all[b].submittedAt)
	})
	out := make([]Status, len(all))
	for i, j := range all {
		out[i] = j.status()
	}
	return out
}

// Close refuses new jobs, cancels the running ones and waits for them.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	running := make([]*job, 0, len(m.jobs))
	for _, j := range m.jobs {
		running = append(running, j)
	}
	m.mu.Unlock()

	for _, j := range running {
		j.tracker.Cancel()
	}
	return m.group.Wait()
}
