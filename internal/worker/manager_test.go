package worker_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"tunebind/internal/executor"
	"tunebind/internal/notifications"
	"tunebind/internal/queue"
	"tunebind/internal/services"
	"tunebind/internal/stage"
	"tunebind/internal/testsupport"
	"tunebind/internal/worker"
)

func TestRunOnceCompletesJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarnessWithConfig(t, cfg, succeedingAcquire(t, cfg), succeedingOrganize(cfg))
	job := testsupport.MustEnqueue(t, h.store, testsupport.MusicRequest("rec-1", "rel-1"))

	h.runOnce(t)

	got := h.job(t, job.ID)
	if got.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", got.Status, got.LastError)
	}
	if !strings.HasSuffix(got.OutputPath, "track.mp3") {
		t.Fatalf("unexpected output path %q", got.OutputPath)
	}
	want := []queue.Status{queue.StatusQueued, queue.StatusClaimed, queue.StatusDownloading, queue.StatusPostprocessing, queue.StatusCompleted}
	if targets := eventTargets(t, h.store, job.ID); !reflect.DeepEqual(targets, want) {
		t.Fatalf("unexpected event trail %v", targets)
	}
	if h.recorder.Count(notifications.EventJobCompleted) != 1 {
		t.Fatal("expected one completion notification")
	}

	processed, err := h.manager.RunOnce(context.Background())
	if err != nil || processed {
		t.Fatalf("expected empty queue, got processed=%v err=%v", processed, err)
	}
}

func TestTransientFailureRetriesUntilExhausted(t *testing.T) {
	acquire := &fakeStep{name: "acquire", execute: func(context.Context, *stage.Work) error {
		return services.WrapReason(services.ErrTransient, "executor", "download", "network", "connection reset by peer", nil)
	}}
	h := newHarness(t, acquire, &fakeStep{name: "organize"})
	job := testsupport.MustEnqueue(t, h.store, testsupport.MusicRequest("rec-1", "rel-1"))

	h.runOnce(t)
	got := h.job(t, job.ID)
	if got.Status != queue.StatusQueued || got.Attempts != 1 {
		t.Fatalf("expected requeue with one attempt, got %s attempts=%d", got.Status, got.Attempts)
	}
	if !strings.Contains(got.LastError, "transient (network)") {
		t.Fatalf("expected classified last error, got %q", got.LastError)
	}

	h.runOnce(t)
	h.runOnce(t)
	got = h.job(t, job.ID)
	if got.Status != queue.StatusFailed || got.FailureReason != queue.ReasonRetriesExhausted {
		t.Fatalf("expected retries_exhausted failure, got %s %q", got.Status, got.FailureReason)
	}
	if got.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", got.Attempts)
	}
	if acquire.executions() != 3 {
		t.Fatalf("expected 3 executions, got %d", acquire.executions())
	}
	if h.recorder.Count(notifications.EventJobFailed) != 1 {
		t.Fatal("expected a single failure notification")
	}
}

func TestTerminalFailures(t *testing.T) {
	cases := []struct {
		name       string
		acquireErr error
		organizeEr error
		wantReason string
	}{
		{
			name:       "permanent",
			acquireErr: services.WrapReason(services.ErrPermanent, "executor", "download", "drm_protected", "DRM", nil),
			wantReason: "drm_protected",
		},
		{
			name:       "integrity",
			acquireErr: services.WrapReason(services.ErrIntegrity, "executor", "verify output", "empty_output", "x is empty", nil),
			wantReason: "empty_output",
		},
		{
			name:       "postprocess",
			organizeEr: services.WrapReason(services.ErrPostprocess, "tagger", "tag", "tagging_failed", "bad stream", nil),
			wantReason: "tagging_failed",
		},
		{
			name: "executor postprocessor",
			acquireErr: executor.Classify("download", executor.Result{
				ExitCode:   1,
				StderrTail: "ERROR: Postprocessing: audio conversion failed: Conversion failed!",
			}),
			wantReason: executor.ReasonPostprocess,
		},
		{
			name:       "unreasoned validation",
			acquireErr: services.Wrap(services.ErrValidation, "executor", "build request", "no url", nil),
			wantReason: "validation",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			acquire := succeedingAcquire(t, cfg)
			if tc.acquireErr != nil {
				acquire.execute = func(context.Context, *stage.Work) error { return tc.acquireErr }
			}
			organize := succeedingOrganize(cfg)
			if tc.organizeEr != nil {
				organize.execute = func(context.Context, *stage.Work) error { return tc.organizeEr }
			}
			h := newHarnessWithConfig(t, cfg, acquire, organize)
			job := testsupport.MustEnqueue(t, h.store, testsupport.VideoRequest("dQw4w9WgXcQ"))

			h.runOnce(t)

			got := h.job(t, job.ID)
			if got.Status != queue.StatusFailed {
				t.Fatalf("expected failed, got %s", got.Status)
			}
			if got.FailureReason != tc.wantReason {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, got.FailureReason)
			}
			if got.Attempts != 0 {
				t.Fatalf("terminal failures must not count as retries, got %d", got.Attempts)
			}
			if acquire.executions() != 1 {
				t.Fatalf("expected one acquisition, got %d", acquire.executions())
			}
			if h.recorder.Count(notifications.EventJobFailed) != 1 {
				t.Fatal("expected failure notification")
			}
		})
	}
}

func TestCancelBeforeSubprocess(t *testing.T) {
	var store *queue.Store
	acquire := &fakeStep{name: "acquire", prepare: func(ctx context.Context, work *stage.Work) error {
		_, err := store.RequestCancel(ctx, work.Job.ID)
		return err
	}}
	h := newHarness(t, acquire, &fakeStep{name: "organize"})
	store = h.store
	job := testsupport.MustEnqueue(t, h.store, testsupport.MusicRequest("rec-1", "rel-1"))

	h.runOnce(t)

	got := h.job(t, job.ID)
	if got.Status != queue.StatusCancelled || got.FailureReason != queue.ReasonCancelled {
		t.Fatalf("expected cancelled, got %s %q", got.Status, got.FailureReason)
	}
	if acquire.executions() != 0 {
		t.Fatal("executor must not start after a cancel request")
	}
}

func TestCancelDuringSubprocess(t *testing.T) {
	var store *queue.Store
	acquire := &fakeStep{name: "acquire", execute: func(ctx context.Context, work *stage.Work) error {
		if _, err := store.RequestCancel(context.Background(), work.Job.ID); err != nil {
			return err
		}
		return waitForCtx(ctx)
	}}
	organize := &fakeStep{name: "organize"}
	h := newHarness(t, acquire, organize)
	store = h.store
	job := testsupport.MustEnqueue(t, h.store, testsupport.MusicRequest("rec-1", "rel-1"))

	h.runOnce(t)

	got := h.job(t, job.ID)
	if got.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s (%s)", got.Status, got.LastError)
	}
	if organize.executions() != 0 {
		t.Fatal("organize must not run for a cancelled job")
	}
}

func TestLeaseLostAbandonsJob(t *testing.T) {
	var store *queue.Store
	acquire := &fakeStep{name: "acquire", execute: func(ctx context.Context, _ *stage.Work) error {
		if _, err := store.RecoverOrphans(context.Background(), "another-worker"); err != nil {
			return err
		}
		return waitForCtx(ctx)
	}}
	h := newHarness(t, acquire, &fakeStep{name: "organize"})
	store = h.store
	job := testsupport.MustEnqueue(t, h.store, testsupport.MusicRequest("rec-1", "rel-1"))

	h.runOnce(t)

	got := h.job(t, job.ID)
	if got.Status != queue.StatusQueued || got.Attempts != 1 {
		t.Fatalf("expected recovery to own the job (queued, 1 attempt), got %s attempts=%d", got.Status, got.Attempts)
	}
	if h.recorder.Count(notifications.EventJobFailed) != 0 {
		t.Fatal("an abandoned job must not be reported as failed")
	}
}

func TestShutdownLeavesJobForRecovery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	acquire := &fakeStep{name: "acquire", execute: func(stepCtx context.Context, _ *stage.Work) error {
		cancel()
		return waitForCtx(stepCtx)
	}}
	h := newHarness(t, acquire, &fakeStep{name: "organize"})
	job := testsupport.MustEnqueue(t, h.store, testsupport.MusicRequest("rec-1", "rel-1"))

	processed, err := h.manager.RunOnce(ctx)
	if !processed || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected interrupted job, got processed=%v err=%v", processed, err)
	}
	got := h.job(t, job.ID)
	if got.Status != queue.StatusDownloading {
		t.Fatalf("expected job left running, got %s", got.Status)
	}

	restarted := worker.NewManager(h.cfg, h.store, nil, worker.Stages{Acquire: &fakeStep{name: "acquire"}, Organize: &fakeStep{name: "organize"}})
	if err := restarted.RecoverOrphans(context.Background()); err != nil {
		t.Fatalf("RecoverOrphans failed: %v", err)
	}
	got = h.job(t, job.ID)
	if got.Status != queue.StatusQueued || got.Attempts != 1 {
		t.Fatalf("expected recovered job, got %s attempts=%d", got.Status, got.Attempts)
	}
}

func TestStartRecoversAndProcesses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarnessWithConfig(t, cfg, succeedingAcquire(t, cfg), succeedingOrganize(cfg))
	testsupport.MustEnqueue(t, h.store, testsupport.MusicRequest("rec-1", "rel-1"))
	orphan := testsupport.MustAdvance(t, h.store, "dead-worker", queue.StatusDownloading)
	second := testsupport.MustEnqueue(t, h.store, testsupport.MusicRequest("rec-2", "rel-1"))

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.manager.Stop()
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		a, b := h.job(t, orphan.ID), h.job(t, second.ID)
		if a.Status == queue.StatusCompleted && b.Status == queue.StatusCompleted {
			if a.Attempts != 1 {
				t.Fatalf("expected recovered job to carry one attempt, got %d", a.Attempts)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("jobs did not complete: %s / %s", a.Status, b.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	summary := h.manager.Status(context.Background())
	if !summary.Running || summary.WorkerID != "worker-test" {
		t.Fatalf("unexpected status summary %+v", summary)
	}
	if !stage.AllReady(summary.StageHealth) || len(summary.StageHealth) != 2 {
		t.Fatalf("unexpected stage health %+v", summary.StageHealth)
	}
	if summary.QueueStats[queue.StatusCompleted] != 2 {
		t.Fatalf("expected 2 completed in stats, got %v", summary.QueueStats)
	}
}

func TestUnconfiguredManager(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := worker.NewManager(cfg, store, nil, worker.Stages{Acquire: &fakeStep{name: "acquire"}})
	if _, err := mgr.RunOnce(context.Background()); err == nil {
		t.Fatal("expected RunOnce to require both steps")
	}
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected Start to require both steps")
	}
}
