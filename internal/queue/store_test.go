package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tunebind/internal/queue"
	"tunebind/internal/services"
	"tunebind/internal/testsupport"
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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T) (*queue.Store, *fakeClock) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	queue.SetClock(store, clock.Now)
	return store, clock
}

func TestEnqueueIsIdempotentForActiveKey(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	first, created, err := store.Enqueue(ctx, testsupport.MusicRequest("rec-1", "rel-1"))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !created || first.Status != queue.StatusQueued {
		t.Fatalf("expected new queued job, got created=%v status=%s", created, first.Status)
	}
	if first.CanonicalKey != "music:rec-1:rel-1" {
		t.Fatalf("unexpected canonical key %q", first.CanonicalKey)
	}

	second, created, err := store.Enqueue(ctx, testsupport.MusicRequest("rec-1", "rel-1"))
	if err != nil {
		t.Fatalf("second Enqueue failed: %v", err)
	}
	if created {
		t.Fatal("expected duplicate enqueue to report existing job")
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing job %d, got %d", first.ID, second.ID)
	}

	other, created, err := store.Enqueue(ctx, testsupport.MusicRequest("rec-1", "rel-2"))
	if err != nil {
		t.Fatalf("Enqueue for other release failed: %v", err)
	}
	if !created || other.ID == first.ID {
		t.Fatal("expected a different release to create its own job")
	}
}

func TestEnqueueAfterTerminalStates(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	done := testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-done", "rel-1"))
	testsupport.MustAdvance(t, store, "w1", queue.StatusCompleted)

	again, created, err := store.Enqueue(ctx, testsupport.MusicRequest("rec-done", "rel-1"))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if created || again.ID != done.ID {
		t.Fatalf("expected completed job %d to satisfy enqueue, got created=%v id=%d", done.ID, created, again.ID)
	}

	forced := testsupport.MusicRequest("rec-done", "rel-1")
	forced.Force = true
	fresh, created, err := store.Enqueue(ctx, forced)
	if err != nil {
		t.Fatalf("forced Enqueue failed: %v", err)
	}
	if !created || fresh.ID == done.ID {
		t.Fatal("expected forced enqueue to create a new row")
	}

	cancelled := testsupport.MustEnqueue(t, store, testsupport.VideoRequest("dQw4w9WgXcQ"))
	if status, err := store.RequestCancel(ctx, cancelled.ID); err != nil || status != queue.StatusCancelled {
		t.Fatalf("RequestCancel = %s, %v", status, err)
	}
	retried, created, err := store.Enqueue(ctx, testsupport.VideoRequest("dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("Enqueue after cancel failed: %v", err)
	}
	if !created || retried.ID == cancelled.ID {
		t.Fatal("expected cancelled key to allow a new job")
	}
}

func TestActiveCanonicalIndexRejectsDirectDuplicates(t *testing.T) {
	store, _ := newStore(t)
	job := testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-1", "rel-1"))

	_, err := queue.DB(store).Exec(
		`INSERT INTO jobs (canonical_key, origin, media_kind, payload_json, status, created_at, updated_at)
         VALUES (?, 'search', 'music', '{}', 'claimed', 'x', 'x')`, job.CanonicalKey)
	if err == nil || !strings.Contains(err.Error(), "UNIQUE") {
		t.Fatalf("expected unique violation for second active row, got %v", err)
	}

	if _, err := queue.DB(store).Exec(
		`INSERT INTO jobs (canonical_key, origin, media_kind, payload_json, status, created_at, updated_at)
         VALUES (?, 'search', 'music', '{}', 'failed', 'x', 'x')`, job.CanonicalKey); err != nil {
		t.Fatalf("expected terminal duplicate to be allowed, got %v", err)
	}
}

func TestEnqueueConcurrentSameKey(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[int64]struct{}{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, ok, err := store.Enqueue(ctx, testsupport.MusicRequest("rec-race", "rel-race"))
			if err != nil {
				t.Errorf("Enqueue failed: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			ids[job.ID] = struct{}{}
		}()
	}
	wg.Wait()
	if created != 1 || len(ids) != 1 {
		t.Fatalf("expected exactly one job, got created=%d ids=%v", created, ids)
	}
}

func TestEnqueueValidatesRequest(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*queue.EnqueueRequest)
	}{
		{"missing key", func(r *queue.EnqueueRequest) { r.CanonicalKey = " " }},
		{"missing origin", func(r *queue.EnqueueRequest) { r.Origin = "" }},
		{"missing variant", func(r *queue.EnqueueRequest) { r.Payload.Variant = nil }},
		{"incomplete pair", func(r *queue.EnqueueRequest) {
			m := r.Payload.Music()
			m.Pair.ReleaseDate = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testsupport.MusicRequest("rec-v", "rel-v")
			tc.mutate(&req)
			_, _, err := store.Enqueue(ctx, req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestClaimNextOrderAndReadyAt(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()

	a := testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-a", "rel-1"))
	b := testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-b", "rel-1"))

	claimed, err := store.ClaimNext(ctx, "w1")
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed == nil || claimed.ID != a.ID {
		t.Fatalf("expected oldest job %d first, got %#v", a.ID, claimed)
	}
	if claimed.Status != queue.StatusClaimed || claimed.WorkerID != "w1" || claimed.ClaimedAt == nil {
		t.Fatalf("unexpected claimed job: %#v", claimed)
	}

	policy := queue.RetryPolicy{Backoff: time.Minute, MaxBackoff: time.Hour}
	if _, err := store.ScheduleRetry(ctx, a.ID, "w1", policy, "network reset"); err != nil {
		t.Fatalf("ScheduleRetry failed: %v", err)
	}

	next, err := store.ClaimNext(ctx, "w2")
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if next == nil || next.ID != b.ID {
		t.Fatalf("expected job %d while %d backs off, got %#v", b.ID, a.ID, next)
	}
	if none, err := store.ClaimNext(ctx, "w3"); err != nil || none != nil {
		t.Fatalf("expected nothing ready, got %#v, %v", none, err)
	}

	clock.Advance(61 * time.Second)
	ready, err := store.ClaimNext(ctx, "w3")
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if ready == nil || ready.ID != a.ID {
		t.Fatalf("expected retried job %d after backoff, got %#v", a.ID, ready)
	}
}

func TestClaimNextSkipsCancelRequested(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	job := testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-a", "rel-1"))
	if _, err := queue.DB(store).Exec(`UPDATE jobs SET cancel_requested = 1 WHERE id = ?`, job.ID); err != nil {
		t.Fatalf("flag cancel: %v", err)
	}
	claimed, err := store.ClaimNext(ctx, "w1")
	if err != nil || claimed != nil {
		t.Fatalf("expected no claim, got %#v, %v", claimed, err)
	}
}

func TestTransitionsAreForwardOnly(t *testing.T) {
	cases := []struct {
		name  string
		from  queue.Status
		to    queue.Status
		allow bool
	}{
		{"claimed to downloading", queue.StatusClaimed, queue.StatusDownloading, true},
		{"downloading to postprocessing", queue.StatusDownloading, queue.StatusPostprocessing, true},
		{"postprocessing to completed", queue.StatusPostprocessing, queue.StatusCompleted, true},
		{"claimed to failed", queue.StatusClaimed, queue.StatusFailed, true},
		{"downloading to cancelled", queue.StatusDownloading, queue.StatusCancelled, true},
		{"claimed skips to postprocessing", queue.StatusClaimed, queue.StatusPostprocessing, false},
		{"downloading to completed", queue.StatusDownloading, queue.StatusCompleted, false},
		{"downloading back to claimed", queue.StatusDownloading, queue.StatusClaimed, false},
		{"postprocessing back to queued", queue.StatusPostprocessing, queue.StatusQueued, false},
		{"completed to failed", queue.StatusCompleted, queue.StatusFailed, false},
		{"failed to queued", queue.StatusFailed, queue.StatusQueued, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := newStore(t)
			ctx := context.Background()
			testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-t", "rel-t"))
			start := tc.from
			if start == queue.StatusFailed {
				start = queue.StatusClaimed
			}
			job := testsupport.MustAdvance(t, store, "w1", start)
			if tc.from == queue.StatusFailed {
				if err := store.Transition(ctx, job.ID, "w1", queue.StatusFailed, "setup"); err != nil {
					t.Fatalf("setup failed: %v", err)
				}
			}

			err := store.Transition(ctx, job.ID, "w1", tc.to, "test")
			if tc.allow && err != nil {
				t.Fatalf("expected %s -> %s to be allowed, got %v", tc.from, tc.to, err)
			}
			if !tc.allow && !errors.Is(err, queue.ErrTransitionRejected) {
				t.Fatalf("expected %s -> %s to be rejected, got %v", tc.from, tc.to, err)
			}
		})
	}
}

func TestStaleWorkerCannotReport(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-s", "rel-s"))
	job := testsupport.MustAdvance(t, store, "old-worker", queue.StatusDownloading)

	clock.Advance(10 * time.Minute)
	result, err := store.ReclaimStale(ctx, clock.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if result.Requeued != 1 {
		t.Fatalf("expected one requeued job, got %+v", result)
	}
	if _, err := store.ClaimNext(ctx, "new-worker"); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	if err := store.Transition(ctx, job.ID, "old-worker", queue.StatusDownloading, "late"); !errors.Is(err, queue.ErrTransitionRejected) {
		t.Fatalf("expected stale transition to be rejected, got %v", err)
	}
	if err := store.RecordTerminal(ctx, job.ID, "old-worker", queue.Outcome{Status: queue.StatusCompleted}); !errors.Is(err, queue.ErrTransitionRejected) {
		t.Fatalf("expected stale completion to be rejected, got %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, job.ID, "old-worker"); !errors.Is(err, queue.ErrLeaseLost) {
		t.Fatalf("expected lease lost for stale heartbeat, got %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, job.ID, "new-worker"); err != nil {
		t.Fatalf("expected owner heartbeat to succeed, got %v", err)
	}
}

func TestScheduleRetryBackoffAndExhaustion(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	policy := queue.RetryPolicy{Backoff: 30 * time.Second, MaxBackoff: 45 * time.Second}

	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-r", "rel-r"))

	wantDelays := []time.Duration{30 * time.Second, 45 * time.Second}
	var jobID int64
	for i, want := range wantDelays {
		job := testsupport.MustAdvance(t, store, "w1", queue.StatusDownloading)
		jobID = job.ID
		retried, err := store.ScheduleRetry(ctx, job.ID, "w1", policy, "connection reset")
		if err != nil {
			t.Fatalf("ScheduleRetry %d failed: %v", i, err)
		}
		if retried.Status != queue.StatusQueued || retried.Attempts != i+1 {
			t.Fatalf("attempt %d: unexpected job %+v", i, retried)
		}
		if retried.ReadyAt == nil || !retried.ReadyAt.Equal(clock.Now().Add(want)) {
			t.Fatalf("attempt %d: expected ready_at now+%s, got %v", i, want, retried.ReadyAt)
		}
		if retried.WorkerID != "" {
			t.Fatalf("expected worker cleared on requeue, got %q", retried.WorkerID)
		}
		clock.Advance(want)
	}

	testsupport.MustAdvance(t, store, "w1", queue.StatusClaimed)
	final, err := store.ScheduleRetry(ctx, jobID, "w1", policy, "connection reset")
	if err != nil {
		t.Fatalf("final ScheduleRetry failed: %v", err)
	}
	if final.Status != queue.StatusFailed || final.FailureReason != queue.ReasonRetriesExhausted {
		t.Fatalf("expected retries exhausted, got %+v", final)
	}
	if final.Attempts != 3 || !strings.HasPrefix(final.LastError, "retries_exhausted: ") {
		t.Fatalf("unexpected exhausted job: attempts=%d error=%q", final.Attempts, final.LastError)
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := queue.RetryPolicy{Backoff: 10 * time.Second, MaxBackoff: 60 * time.Second}
	cases := map[int]time.Duration{0: 10 * time.Second, 1: 10 * time.Second, 2: 20 * time.Second, 3: 40 * time.Second, 4: 60 * time.Second, 9: 60 * time.Second}
	for attempts, want := range cases {
		if got := policy.Delay(attempts); got != want {
			t.Fatalf("Delay(%d) = %s, want %s", attempts, got, want)
		}
	}
}

func TestRecoverOrphansAddsExactlyOneAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-a", "rel-1"))
	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-b", "rel-1"))
	exhausted := testsupport.MusicRequest("rec-c", "rel-1")
	exhausted.MaxAttempts = 1
	testsupport.MustEnqueue(t, store, exhausted)

	downloading := testsupport.MustAdvance(t, store, "crashed", queue.StatusDownloading)
	post := testsupport.MustAdvance(t, store, "crashed", queue.StatusPostprocessing)
	last := testsupport.MustAdvance(t, store, "crashed", queue.StatusClaimed)

	// Simulate a restart: reopen the same database file.
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened, err := queue.OpenPath(filepath.Join(cfg.Paths.DataDir, "queue.db"))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	result, err := reopened.RecoverOrphans(ctx, "fresh")
	if err != nil {
		t.Fatalf("RecoverOrphans failed: %v", err)
	}
	if result.Requeued != 2 || result.Failed != 1 {
		t.Fatalf("unexpected recovery result: %+v", result)
	}

	for _, id := range []int64{downloading.ID, post.ID} {
		job, err := reopened.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != queue.StatusQueued || job.Attempts != 1 || job.WorkerID != "" {
			t.Fatalf("expected job %d requeued with one attempt, got %+v", id, job)
		}
	}
	failed, err := reopened.GetByID(ctx, last.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if failed.Status != queue.StatusFailed || failed.FailureReason != queue.ReasonOrphanedRetriesExhausted {
		t.Fatalf("expected orphaned exhaustion, got %+v", failed)
	}

	again, err := reopened.RecoverOrphans(ctx, "fresh")
	if err != nil {
		t.Fatalf("second RecoverOrphans failed: %v", err)
	}
	if again.Requeued != 0 || again.Failed != 0 {
		t.Fatalf("expected recovery to be a no-op the second time, got %+v", again)
	}
}

func TestReclaimStaleKeepsLiveJobs(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-a", "rel-1"))
	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-b", "rel-1"))
	stale := testsupport.MustAdvance(t, store, "w1", queue.StatusDownloading)
	clock.Advance(5 * time.Minute)
	live := testsupport.MustAdvance(t, store, "w2", queue.StatusDownloading)

	result, err := store.ReclaimStale(ctx, clock.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if len(result.JobIDs) != 1 || result.JobIDs[0] != stale.ID {
		t.Fatalf("expected only job %d reclaimed, got %+v", stale.ID, result)
	}
	job, err := store.GetByID(ctx, live.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job.Status != queue.StatusDownloading {
		t.Fatalf("expected live job untouched, got %s", job.Status)
	}
}

func TestRequestCancel(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-run", "rel-1"))
	queued := testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-wait", "rel-1"))
	running := testsupport.MustAdvance(t, store, "w1", queue.StatusDownloading)

	status, err := store.RequestCancel(ctx, running.ID)
	if err != nil || status != queue.StatusDownloading {
		t.Fatalf("expected running job flagged, got %s, %v", status, err)
	}
	flagged, err := store.CancelRequested(ctx, running.ID)
	if err != nil || !flagged {
		t.Fatalf("expected cancel flag, got %v, %v", flagged, err)
	}

	status, err = store.RequestCancel(ctx, queued.ID)
	if err != nil || status != queue.StatusCancelled {
		t.Fatalf("expected queued job cancelled, got %s, %v", status, err)
	}
	if _, err := store.RequestCancel(ctx, queued.ID); !errors.Is(err, queue.ErrTransitionRejected) {
		t.Fatalf("expected cancel of terminal job to be rejected, got %v", err)
	}
	if _, err := store.RequestCancel(ctx, 9999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordTerminalAndEvents(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-e", "rel-e"))
	job := testsupport.MustAdvance(t, store, "w1", queue.StatusPostprocessing)

	if err := store.RecordTerminal(ctx, job.ID, "w1", queue.Outcome{Status: queue.StatusQueued}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected non-terminal outcome rejected, got %v", err)
	}
	if err := store.RecordTerminal(ctx, job.ID, "w1", queue.Outcome{
		Status:     queue.StatusCompleted,
		OutputPath: "/music/Artist X/Album/01 Track.mp3",
	}); err != nil {
		t.Fatalf("RecordTerminal failed: %v", err)
	}
	done, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if done.Status != queue.StatusCompleted || done.FinishedAt == nil || done.OutputPath == "" {
		t.Fatalf("unexpected completed job: %+v", done)
	}

	events, err := store.Events(ctx, job.ID)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	var path []string
	for _, ev := range events {
		path = append(path, string(ev.To))
	}
	want := "queued,claimed,downloading,postprocessing,completed"
	if strings.Join(path, ",") != want {
		t.Fatalf("unexpected event path %q, want %q", strings.Join(path, ","), want)
	}
}

func TestPayloadRoundTripThroughStore(t *testing.T) {
	store, _ := newStore(t)

	video := testsupport.VideoRequest("dQw4w9WgXcQ")
	video.Payload.Destination = "/videos"
	job := testsupport.MustEnqueue(t, store, video)
	if job.MediaKind != queue.MediaVideo || job.Payload.Video() == nil || job.Payload.Music() != nil {
		t.Fatalf("expected video payload, got %+v", job.Payload)
	}
	if job.Payload.Destination != "/videos" {
		t.Fatalf("expected destination to survive, got %q", job.Payload.Destination)
	}

	music := testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-p", "rel-p"))
	if music.Payload.Music() == nil || music.Payload.Music().Pair.ReleaseGroupID != "rg-rel-p" {
		t.Fatalf("expected music pair to survive, got %+v", music.Payload)
	}
}

func TestSnapshots(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	snap, err := store.Snapshot(ctx, "mix")
	if err != nil || snap != nil {
		t.Fatalf("expected no snapshot, got %#v, %v", snap, err)
	}
	if err := store.SaveSnapshot(ctx, queue.Snapshot{CollectionID: "mix", ContentHash: "h1", ItemIDs: []string{"a", "b"}}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := store.SaveSnapshot(ctx, queue.Snapshot{CollectionID: "mix", ContentHash: "h2", ItemIDs: []string{"a", "b", "c"}}); err != nil {
		t.Fatalf("SaveSnapshot overwrite failed: %v", err)
	}
	snap, err = store.Snapshot(ctx, "mix")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.ContentHash != "h2" || strings.Join(snap.ItemIDs, ",") != "a,b,c" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestBindingFailures(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.RecordBindingFailure(ctx, queue.BindingFailure{Title: "x"}); err == nil {
		t.Fatal("expected missing reason to be rejected")
	}
	for _, title := range []string{"First", "Second"} {
		if err := store.RecordBindingFailure(ctx, queue.BindingFailure{
			BatchID: "batch-1",
			Artist:  "Artist X",
			Title:   title,
			Reason:  "no_official_album",
		}); err != nil {
			t.Fatalf("RecordBindingFailure failed: %v", err)
		}
	}
	failures, err := store.BindingFailures(ctx, 10)
	if err != nil {
		t.Fatalf("BindingFailures failed: %v", err)
	}
	if len(failures) != 2 || failures[0].Title != "Second" || failures[0].Origin != queue.OriginSearch {
		t.Fatalf("unexpected failures: %+v", failures)
	}
}

func TestHealthAndCheckHealth(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-a", "rel-1"))
	testsupport.MustEnqueue(t, store, testsupport.MusicRequest("rec-b", "rel-1"))
	testsupport.MustAdvance(t, store, "w1", queue.StatusDownloading)

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if summary.Total != 2 || summary.Queued != 1 || summary.Running != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health %+v", health)
	}
	if health.SchemaVersion != 1 || len(health.MissingColumns) != 0 || health.TotalJobs != 2 {
		t.Fatalf("unexpected health details %+v", health)
	}
}

func TestFinishedJobsKeepHistoryAndDedup(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()

	req := testsupport.MusicRequest("rec-old", "rel-1")
	testsupport.MustEnqueue(t, store, req)
	done := testsupport.MustAdvance(t, store, "w1", queue.StatusCompleted)
	clock.Advance(400 * 24 * time.Hour)

	again, created, err := store.Enqueue(ctx, req)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if created || again.ID != done.ID {
		t.Fatalf("expected completed job %d to absorb re-enqueue, got created=%v id=%d", done.ID, created, again.ID)
	}
	events, err := store.Events(ctx, done.ID)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) == 0 || events[len(events)-1].To != queue.StatusCompleted {
		t.Fatalf("expected event trail ending in completed, got %+v", events)
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	store, err := queue.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	if _, err := queue.DB(store).Exec(`UPDATE schema_version SET version = version + 1`); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	reopened, err := queue.OpenPath(path)
	if err == nil {
		_ = reopened.Close()
		t.Fatal("expected schema mismatch")
	}
	if !errors.Is(err, queue.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
