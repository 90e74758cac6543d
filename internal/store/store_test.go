package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/pipeline"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testJob(id string) internal.JobRequest {
	return internal.JobRequest{
		ID:         id,
		SourceText: "It was a dark night.",
		Strategy:   "casual",
		Level:      3,
		Timestamp:  time.Now(),
	}
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_SaveAndGetJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveJob(ctx, testJob("job-1")); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != internal.JobRunning {
		t.Errorf("expected status running, got %q", got.Status)
	}
	if got.Strategy != "casual" || got.Level != 3 {
		t.Errorf("unexpected job record: %+v", got)
	}
	if got.Chunks != 0 {
		t.Errorf("expected 0 checkpoints, got %d", got.Chunks)
	}
}

func TestStore_GetJob_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveJob(ctx, testJob("job-1")); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "job-1", internal.JobCancelled); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}
	got, _ := s.GetJob(ctx, "job-1")
	if got.Status != internal.JobCancelled {
		t.Errorf("expected cancelled, got %q", got.Status)
	}

	if err := s.UpdateJobStatus(ctx, "missing", internal.JobFailed); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveJob_ResubmitKeepsCheckpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveJob(ctx, testJob("job-1")); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	if err := s.SaveCheckpoint(ctx, "job-1", pipeline.Checkpoint{Index: 0, ContentHash: "h", Transformed: "x"}); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "job-1", internal.JobFailed); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}

	if err := s.SaveJob(ctx, testJob("job-1")); err != nil {
		t.Fatalf("re-SaveJob failed: %v", err)
	}
	got, _ := s.GetJob(ctx, "job-1")
	if got.Status != internal.JobRunning {
		t.Errorf("expected running after resubmit, got %q", got.Status)
	}
	if got.Chunks != 1 {
		t.Errorf("expected checkpoint to survive resubmit, got %d", got.Chunks)
	}
}

func TestStore_Checkpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cps := []pipeline.Checkpoint{
		{Index: 2, ContentHash: "c", Transformed: "third", Attempts: 2},
		{Index: 0, ContentHash: "a", Transformed: "first", Attempts: 1},
		{Index: 1, ContentHash: "b", Transformed: "", Declined: true, Attempts: 1},
	}
	for _, cp := range cps {
		if err := s.SaveCheckpoint(ctx, "job-1", cp); err != nil {
			t.Fatalf("SaveCheckpoint failed: %v", err)
		}
	}
	// a retried chunk replaces its earlier checkpoint
	if err := s.SaveCheckpoint(ctx, "job-1", pipeline.Checkpoint{Index: 2, ContentHash: "c", Transformed: "third v2", Attempts: 3}); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}
	if err := s.SaveCheckpoint(ctx, "job-2", pipeline.Checkpoint{Index: 0, ContentHash: "z", Transformed: "other"}); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	got, err := s.LoadCheckpoints(ctx, "job-1")
	if err != nil {
		t.Fatalf("LoadCheckpoints failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(got))
	}
	for i, cp := range got {
		if cp.Index != i {
			t.Errorf("checkpoint %d: expected index %d, got %d", i, i, cp.Index)
		}
	}
	if got[1].Declined != true {
		t.Error("expected declined flag to round-trip")
	}
	if got[2].Transformed != "third v2" || got[2].Attempts != 3 {
		t.Errorf("expected replaced checkpoint, got %+v", got[2])
	}

	none, err := s.LoadCheckpoints(ctx, "missing")
	if err != nil {
		t.Fatalf("LoadCheckpoints failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no checkpoints, got %d", len(none))
	}
}

func TestStore_ListAndDeleteJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := testJob("job-old")
	older.Timestamp = time.Now().Add(-time.Hour)
	for _, req := range []internal.JobRequest{older, testJob("job-new")} {
		if err := s.SaveJob(ctx, req); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}
	if err := s.SaveCheckpoint(ctx, "job-old", pipeline.Checkpoint{Index: 0, ContentHash: "a", Transformed: "x"}); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	jobs, err := s.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "job-new" {
		t.Fatalf("expected newest job first, got %+v", jobs)
	}

	if err := s.DeleteJob(ctx, "job-old"); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	cps, _ := s.LoadCheckpoints(ctx, "job-old")
	if len(cps) != 0 {
		t.Errorf("expected checkpoints to be deleted with the job, got %d", len(cps))
	}
	if err := s.DeleteJob(ctx, "job-old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ClearJobsKeepsRunning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.SaveJob(ctx, testJob(id)); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}
	_ = s.UpdateJobStatus(ctx, "a", internal.JobCompleted)
	_ = s.UpdateJobStatus(ctx, "b", internal.JobFailed)

	n, err := s.ClearJobs(ctx)
	if err != nil {
		t.Fatalf("ClearJobs failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cleared jobs, got %d", n)
	}
	jobs, _ := s.ListJobs(ctx)
	if len(jobs) != 1 || jobs[0].ID != "c" {
		t.Errorf("expected only the running job to remain, got %+v", jobs)
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := s.SaveJob(ctx, testJob(id)); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}
	_ = s.UpdateJobStatus(ctx, "a", internal.JobCompleted)
	_ = s.UpdateJobStatus(ctx, "b", internal.JobFailed)
	_ = s.UpdateJobStatus(ctx, "c", internal.JobCancelled)
	_ = s.SaveCheckpoint(ctx, "d", pipeline.Checkpoint{Index: 0, ContentHash: "h", Transformed: "x"})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := JobStats{TotalJobs: 4, RunningJobs: 1, CompletedJobs: 1, FailedJobs: 1, CancelledJobs: 1, Checkpoints: 1}
	if *stats != want {
		t.Errorf("expected %+v, got %+v", want, *stats)
	}
}

func TestStore_ProtectedTerms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, term := range []string{"  Nero  ", "Café Nero", "Nero"} {
		if err := s.AddProtectedTerm(ctx, term); err != nil {
			t.Fatalf("AddProtectedTerm(%q) failed: %v", term, err)
		}
	}
	if err := s.AddProtectedTerm(ctx, "   "); err == nil {
		t.Error("expected error for empty term")
	}

	terms, err := s.ProtectedTerms(ctx)
	if err != nil {
		t.Fatalf("ProtectedTerms failed: %v", err)
	}
	if len(terms) != 2 || terms[0] != "Café Nero" || terms[1] != "Nero" {
		t.Fatalf("unexpected terms: %q", terms)
	}

	entries, _ := s.ListProtectedTerms(ctx)
	if err := s.DeleteProtectedTerm(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteProtectedTerm by id failed: %v", err)
	}
	if err := s.DeleteProtectedTerm(ctx, " Nero "); err != nil {
		t.Fatalf("DeleteProtectedTerm by term failed: %v", err)
	}
	if err := s.DeleteProtectedTerm(ctx, "Nero"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	terms, _ = s.ProtectedTerms(ctx)
	if len(terms) != 0 {
		t.Errorf("expected no terms, got %q", terms)
	}
}
