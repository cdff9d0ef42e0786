package worker_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tunebind/internal/config"
	"tunebind/internal/notifications"
	"tunebind/internal/queue"
	"tunebind/internal/stage"
	"tunebind/internal/testsupport"
	"tunebind/internal/worker"
)

type fakeStep struct {
	name    string
	prepare func(ctx context.Context, work *stage.Work) error
	execute func(ctx context.Context, work *stage.Work) error

	mu       sync.Mutex
	prepared int
	executed int
}

func (f *fakeStep) Prepare(ctx context.Context, work *stage.Work) error {
	f.mu.Lock()
	f.prepared++
	f.mu.Unlock()
	if f.prepare != nil {
		return f.prepare(ctx, work)
	}
	return nil
}

func (f *fakeStep) Execute(ctx context.Context, work *stage.Work) error {
	f.mu.Lock()
	f.executed++
	f.mu.Unlock()
	if f.execute != nil {
		return f.execute(ctx, work)
	}
	return nil
}

func (f *fakeStep) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func (f *fakeStep) executions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executed
}

// succeedingAcquire mimics a download that lands in the job's work dir.
func succeedingAcquire(t *testing.T, cfg *config.Config) *fakeStep {
	return &fakeStep{
		name: "acquire",
		prepare: func(_ context.Context, work *stage.Work) error {
			work.WorkDir = filepath.Join(cfg.Paths.StagingDir, "job")
			return nil
		},
		execute: func(_ context.Context, work *stage.Work) error {
			work.DownloadedPath = filepath.Join(work.WorkDir, "track.mp3")
			testsupport.WriteFile(t, work.DownloadedPath, 128)
			return nil
		},
	}
}

func succeedingOrganize(cfg *config.Config) *fakeStep {
	return &fakeStep{
		name: "organize",
		prepare: func(_ context.Context, work *stage.Work) error {
			work.FinalPath = filepath.Join(cfg.Paths.LibraryDir, "Artist X", "track.mp3")
			return nil
		},
	}
}

type harness struct {
	cfg      *config.Config
	store    *queue.Store
	recorder *notifications.Recorder
	manager  *worker.Manager
}

func newHarness(t *testing.T, acquire, organize stage.Handler, opts ...worker.Option) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return newHarnessWithConfig(t, cfg, acquire, organize, opts...)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config, acquire, organize stage.Handler, opts ...worker.Option) *harness {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	recorder := &notifications.Recorder{}
	all := append([]worker.Option{
		worker.WithNotifier(recorder),
		worker.WithWorkerID("worker-test"),
		worker.WithHeartbeatInterval(20 * time.Millisecond),
		worker.WithPollInterval(10 * time.Millisecond),
	}, opts...)
	mgr := worker.NewManager(cfg, store, nil, worker.Stages{Acquire: acquire, Organize: organize}, all...)
	return &harness{cfg: cfg, store: store, recorder: recorder, manager: mgr}
}

func (h *harness) runOnce(t *testing.T) {
	t.Helper()
	processed, err := h.manager.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !processed {
		t.Fatal("expected a job to be processed")
	}
}

func (h *harness) job(t *testing.T, id int64) *queue.Job {
	t.Helper()
	job, err := h.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job == nil {
		t.Fatalf("job %d missing", id)
	}
	return job
}

func eventTargets(t *testing.T, store *queue.Store, id int64) []queue.Status {
	t.Helper()
	events, err := store.Events(context.Background(), id)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	out := make([]queue.Status, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.To)
	}
	return out
}

// waitForCtx blocks until ctx ends or the deadline passes.
func waitForCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return context.DeadlineExceeded
	}
}
