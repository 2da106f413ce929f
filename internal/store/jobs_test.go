package store

import (
	"errors"
	"testing"
	"time"

	"scenesmith/internal/types"
)

func TestJobLifecycle_ReadyPath(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJob("j1", "source"); err != nil {
		t.Fatalf("create: %v", err)
	}

	job, err := s.ClaimPendingJob()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job.ID != "j1" || job.Status != types.JobBuilding {
		t.Fatalf("claimed %+v", job)
	}

	if err := s.MarkJobReady("j1", "bucket/key"); err != nil {
		t.Fatalf("ready: %v", err)
	}
	job, err = s.GetJob("j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != types.JobReady {
		t.Errorf("status = %s", job.Status)
	}
	if job.ArtifactRef != "bucket/key" {
		t.Errorf("artifact ref = %q", job.ArtifactRef)
	}
	if job.ErrorMessage != "" {
		t.Errorf("ready job carries error %q", job.ErrorMessage)
	}
}

func TestJobLifecycle_FailedThenFixed(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJob("j1", "bad source"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.ClaimPendingJob(); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.MarkJobFailed("j1", "CompileFailure: 1:1: expected declaration"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	job, err := s.GetJob("j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != types.JobFailed || job.ErrorMessage == "" {
		t.Fatalf("failed job = %+v", job)
	}

	// Fix resubmission behaves like a fresh submission under the same id.
	if err := s.ResubmitJob("j1", "good source"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	job, err = s.GetJob("j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != types.JobPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.SourceCode != "good source" {
		t.Errorf("source = %q", job.SourceCode)
	}
	if job.ErrorMessage != "" || job.ArtifactRef != "" {
		t.Errorf("old outcome survived resubmission: %+v", job)
	}
}

func TestResubmitJob_ReadyJobRejected(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJob("j1", "source"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.ClaimPendingJob(); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.MarkJobReady("j1", "bucket/key"); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if err := s.ResubmitJob("j1", "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("resubmit of ready job: err = %v, want ErrNotFound", err)
	}
}

func TestClaimPendingJob_OldestFirst(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJob("newer", "b"); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := s.CreateJob("newest", "c"); err != nil {
		t.Fatalf("create: %v", err)
	}

	job, err := s.ClaimPendingJob()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job.ID != "newer" {
		t.Errorf("claimed %s, want oldest", job.ID)
	}
}

func TestClaimPendingJob_EmptyQueue(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ClaimPendingJob(); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClaimPendingJob_NoDoubleClaim(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJob("j1", "source"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.ClaimPendingJob(); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := s.ClaimPendingJob(); !errors.Is(err, ErrNotFound) {
		t.Errorf("second claim: err = %v, want ErrNotFound", err)
	}
}

func TestMarkJobReady_RequiresBuilding(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJob("j1", "source"); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Pending, never claimed: the transition is illegal.
	if err := s.MarkJobReady("j1", "ref"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReclaimStaleJobs(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJob("j1", "source"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.ClaimPendingJob(); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Nothing is stale yet.
	n, err := s.ReclaimStaleJobs(time.Hour)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if n != 0 {
		t.Errorf("reclaimed %d fresh jobs", n)
	}

	// With a zero horizon every building job is overdue.
	time.Sleep(10 * time.Millisecond)
	n, err = s.ReclaimStaleJobs(0)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if n != 1 {
		t.Fatalf("reclaimed %d, want 1", n)
	}

	job, err := s.GetJob("j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != types.JobPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", job.RetryCount)
	}

	// The reclaimed job is claimable again.
	if _, err := s.ClaimPendingJob(); err != nil {
		t.Errorf("reclaimed job not claimable: %v", err)
	}
}

func TestTouchJob_KeepsHeartbeat(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJob("j1", "source"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.ClaimPendingJob(); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.TouchJob("j1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	// Touching a non-building job is an error.
	if err := s.MarkJobFailed("j1", "x"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := s.TouchJob("j1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("touch of failed job: err = %v, want ErrNotFound", err)
	}
}
