package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/humanizer/internal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTracker(t *testing.T) {
	t.Run("ShouldHaveNoEstimateBeforeFirstCompletion", func(t *testing.T) {
		tr := New("job-1")
		tr.Begin(4)
		p := tr.Snapshot()
		assert.Equal(t, "job-1", p.JobID)
		assert.Equal(t, 4, p.TotalChunks)
		assert.Nil(t, p.EstimatedRemainingMs)
		assert.Equal(t, 0, p.Percent())
		assert.Equal(t, internal.JobRunning, tr.Status())
	})

	t.Run("ShouldEstimateRemainingTime", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		tr := New("job", WithClock(clock.Now))
		tr.Begin(4)

		clock.Advance(2 * time.Second)
		tr.OnChunkComplete(0)
		p := tr.Snapshot()
		require.NotNil(t, p.EstimatedRemainingMs)
		assert.Equal(t, int64(6000), *p.EstimatedRemainingMs)
		assert.Equal(t, 25, p.Percent())

		clock.Advance(2 * time.Second)
		tr.OnChunkComplete(1)
		p = tr.Snapshot()
		assert.Equal(t, int64(4000), *p.EstimatedRemainingMs)
		assert.Equal(t, 50, p.Percent())
	})

	t.Run("ShouldCountFailures", func(t *testing.T) {
		tr := New("job")
		tr.Begin(3)
		tr.OnChunkComplete(0)
		tr.OnChunkFailed(1)
		tr.Finish(internal.JobFailed)

		p := tr.Snapshot()
		assert.Equal(t, 1, p.CompletedChunks)
		assert.Equal(t, 1, p.FailedChunks)
		assert.Equal(t, int64(0), *p.EstimatedRemainingMs)
		assert.Equal(t, internal.JobFailed, tr.Status())
	})

	t.Run("ShouldNotExceedTotal", func(t *testing.T) {
		tr := New("job")
		tr.Begin(1)
		tr.OnChunkComplete(0)
		tr.OnChunkComplete(0)
		tr.OnChunkFailed(0)
		p := tr.Snapshot()
		assert.Equal(t, 1, p.CompletedChunks)
		assert.Equal(t, 0, p.FailedChunks)
		assert.Equal(t, 100, p.Percent())
	})

	t.Run("ShouldKeepFirstTerminalStatus", func(t *testing.T) {
		tr := New("job")
		tr.Finish(internal.JobCompleted)
		tr.Finish(internal.JobFailed)
		tr.Cancel()
		assert.Equal(t, internal.JobCompleted, tr.Status())
		assert.False(t, tr.Cancelled())
	})

	t.Run("ShouldRaiseCancellationFlag", func(t *testing.T) {
		tr := New("job")
		tr.Begin(2)
		assert.False(t, tr.Cancelled())
		tr.Cancel()
		assert.True(t, tr.Cancelled())
		assert.False(t, tr.Snapshot().Cancelled)
		tr.Finish(internal.JobCancelled)
		assert.True(t, tr.Snapshot().Cancelled)
		assert.Equal(t, internal.JobCancelled, tr.Status())
	})

	t.Run("ShouldDropLateCancelWhenJobCompletes", func(t *testing.T) {
		tr := New("job")
		tr.Begin(1)
		tr.Cancel()
		tr.OnChunkComplete(0)
		tr.Finish(internal.JobCompleted)
		p := tr.Snapshot()
		assert.False(t, p.Cancelled)
		assert.False(t, tr.Cancelled())
		assert.Equal(t, internal.JobCompleted, tr.Status())
		assert.Equal(t, 100, p.Percent())
	})

	t.Run("ShouldNotifyListener", func(t *testing.T) {
		var seen []int
		tr := New("job", WithListener(func(p internal.JobProgress) {
			seen = append(seen, p.CompletedChunks)
		}))
		tr.Begin(2)
		tr.OnChunkComplete(0)
		tr.OnChunkComplete(1)
		assert.Equal(t, []int{0, 1, 2}, seen)
	})

	t.Run("ShouldTakeConsistentSnapshotsUnderConcurrency", func(t *testing.T) {
		tr := New("job")
		tr.Begin(1000)

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 250; i++ {
					tr.OnChunkComplete(i)
				}
			}()
		}
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

	poll:
		for {
			select {
			case <-done:
				break poll
			default:
				p := tr.Snapshot()
				require.LessOrEqual(t, p.CompletedChunks+p.FailedChunks, p.TotalChunks)
				require.GreaterOrEqual(t, p.Percent(), 0)
				require.LessOrEqual(t, p.Percent(), 100)
			}
		}
		assert.Equal(t, 1000, tr.Snapshot().CompletedChunks)
	})
}

func TestJobProgress_PercentOfEmptyJob(t *testing.T) {
	assert.Equal(t, 100, internal.JobProgress{}.Percent())
}
