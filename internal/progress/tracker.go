// Package progress records per-job chunk counters, derives completion and
// remaining-time estimates, and carries the job's cancellation flag.
package progress

import (
	"sync"
	"time"

	"github.com/valpere/humanizer/internal"
)

// Tracker is safe for concurrent use: the pipeline writes, status pollers
// read. Every read returns a copy taken under the lock.
type Tracker struct {
	mu        sync.Mutex
	jobID     string
	total     int
	completed int
	failed    int
	requested bool // Cancel was called
	cancelled bool // the job stopped because of it
	status    internal.JobStatus
	startedAt time.Time

	now      func() time.Time
	listener func(internal.JobProgress)
}

type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithListener registers fn to receive a snapshot after every change. fn is
// called without the tracker lock held, from the goroutine that made the
// change.
func WithListener(fn func(internal.JobProgress)) Option {
	return func(t *Tracker) { t.listener = fn }
}

func New(jobID string, opts ...Option) *Tracker {
	t := &Tracker{jobID: jobID, status: internal.JobRunning, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.startedAt = t.now()
	return t
}

func (t *Tracker) JobID() string { return t.jobID }

// Begin records the chunk count and restarts the clock.
func (t *Tracker) Begin(total int) {
	t.update(func() {
		t.total = total
		t.completed, t.failed = 0, 0
		t.startedAt = t.now()
	})
}

// OnChunkStart is an observation point only; counters change on completion.
func (t *Tracker) OnChunkStart(int) {}

func (t *Tracker) OnChunkComplete(int) {
	t.update(func() {
		if t.completed+t.failed < t.total {
			t.completed++
		}
	})
}

func (t *Tracker) OnChunkFailed(int) {
	t.update(func() {
		if t.completed+t.failed < t.total {
			t.failed++
		}
	})
}

// OnCancelled records that the pipeline acknowledged cancellation.
func (t *Tracker) OnCancelled() {
	t.update(func() { t.cancelled = true })
}

// Cancel requests cooperative cancellation. It is a no-op once the job is
// terminal. Snapshots report Cancelled only after the job actually stops
// early.
func (t *Tracker) Cancel() {
	t.update(func() {
		if !t.status.Terminal() {
			t.requested = true
		}
	})
}

// Cancelled reports whether cancellation was requested or acknowledged.
func (t *Tracker) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requested || t.cancelled
}

// Finish moves the job to a terminal status. The first terminal status wins.
// A request that arrived too late to stop any chunk is dropped.
func (t *Tracker) Finish(status internal.JobStatus) {
	t.update(func() {
		if t.status.Terminal() {
			return
		}
		t.status = status
		if status == internal.JobCancelled {
			t.cancelled = true
		} else {
			t.requested, t.cancelled = false, false
		}
	})
}

func (t *Tracker) Status() internal.JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Snapshot returns a consistent copy of the counters.
func (t *Tracker) Snapshot() internal.JobProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() internal.JobProgress {
	p := internal.JobProgress{
		JobID:           t.jobID,
		TotalChunks:     t.total,
		CompletedChunks: t.completed,
		FailedChunks:    t.failed,
		Cancelled:       t.cancelled,
		StartedAt:       t.startedAt,
	}
	if t.completed > 0 {
		elapsed := t.now().Sub(t.startedAt)
		remaining := t.total - t.completed
		if remaining < 0 || t.status.Terminal() {
			remaining = 0
		}
		eta := elapsed.Milliseconds() * int64(remaining) / int64(t.completed)
		p.EstimatedRemainingMs = &eta
	}
	return p
}

func (t *Tracker) update(fn func()) {
	t.mu.Lock()
	fn()
	var snap internal.JobProgress
	if t.listener != nil {
		snap = t.snapshotLocked()
	}
	t.mu.Unlock()

	if t.listener != nil {
		t.listener(snap)
	}
}
