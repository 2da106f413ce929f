package buildjob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"scenesmith/internal/objectstore"
	"scenesmith/internal/store"
	"scenesmith/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const goodSource = `func Title(ctx *motion.SceneContext) motion.Node {
	return motion.Fill("#000", motion.Label("hello", 40, "#fff"))
}

var _ = motion.Export(Title)
`

const badSource = "import \"os\"\n\n" + goodSource

func newTestService(t *testing.T, cfg Config) (*Service, *store.Store, *objectstore.LocalStore) {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	artifacts, err := objectstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("open artifact store: %v", err)
	}
	return New(st, artifacts, cfg, zap.NewNop()), st, artifacts
}

func TestProcessOne_ReadyPath(t *testing.T) {
	svc, _, artifacts := newTestService(t, DefaultConfig())
	ctx := context.Background()

	id, err := svc.Submit(ctx, goodSource)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	processed, err := svc.ProcessOne(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !processed {
		t.Fatal("pending job not processed")
	}

	job, err := svc.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if job.Status != types.JobReady {
		t.Fatalf("status = %s (%s)", job.Status, job.ErrorMessage)
	}
	if job.ArtifactRef == "" {
		t.Fatal("ready job without artifact ref")
	}

	// The ref resolves to the compiled artifact.
	rc, err := artifacts.Get(ctx, job.ArtifactRef)
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(body), "// Code generated by scenesmith") {
		t.Errorf("artifact missing generated header:\n%s", body)
	}
	if !strings.Contains(string(body), "motion.Export(Title)") {
		t.Errorf("artifact missing export:\n%s", body)
	}
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultConfig())
	processed, err := svc.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed {
		t.Error("processed work from an empty queue")
	}
}

func TestProcessOne_FailedThenFixedThenReady(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultConfig())
	ctx := context.Background()

	id, err := svc.Submit(ctx, badSource)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.ProcessOne(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, err := svc.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if job.Status != types.JobFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "ForbiddenConstruct") {
		t.Errorf("error message = %q", job.ErrorMessage)
	}

	// Fix with corrected source and rebuild.
	if err := svc.Fix(ctx, id, goodSource); err != nil {
		t.Fatalf("fix: %v", err)
	}
	if _, err := svc.ProcessOne(ctx); err != nil {
		t.Fatalf("process after fix: %v", err)
	}
	job, err = svc.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if job.Status != types.JobReady {
		t.Errorf("status = %s (%s), want ready", job.Status, job.ErrorMessage)
	}
	if job.ErrorMessage != "" {
		t.Errorf("ready job still carries %q", job.ErrorMessage)
	}
}

func TestProcessOne_IdenticalSourceSameArtifactRef(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultConfig())
	ctx := context.Background()

	a, err := svc.Submit(ctx, goodSource)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	b, err := svc.Submit(ctx, goodSource)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.ProcessOne(ctx); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	jobA, _ := svc.Status(ctx, a)
	jobB, _ := svc.Status(ctx, b)
	if jobA.ArtifactRef == "" || jobA.ArtifactRef != jobB.ArtifactRef {
		t.Errorf("identical source yielded refs %q and %q", jobA.ArtifactRef, jobB.ArtifactRef)
	}
}

func TestProcessOne_RetryCapExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	svc, st, _ := newTestService(t, cfg)
	ctx := context.Background()

	id, err := svc.Submit(ctx, goodSource)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Simulate two crashed workers: claim, then let the reclaim sweep find
	// the lapsed heartbeat.
	for i := 0; i < 2; i++ {
		if _, err := st.ClaimPendingJob(); err != nil {
			t.Fatalf("claim: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		if _, err := st.ReclaimStaleJobs(0); err != nil {
			t.Fatalf("reclaim: %v", err)
		}
	}

	if _, err := svc.ProcessOne(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	job, err := svc.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if job.Status != types.JobFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "exceeded") {
		t.Errorf("error message = %q", job.ErrorMessage)
	}
}

func TestRun_DrainsAndStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = 20 * time.Millisecond
	cfg.ReclaimInterval = 50 * time.Millisecond
	cfg.Workers = 2
	svc, _, _ := newTestService(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := svc.Submit(ctx, goodSource)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.After(30 * time.Second)
	for {
		job, err := svc.Status(ctx, id)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if job.Status.Terminal() {
			if job.Status != types.JobReady {
				t.Fatalf("status = %s (%s)", job.Status, job.ErrorMessage)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never finished, status %s", job.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not drain after cancel")
	}
}
