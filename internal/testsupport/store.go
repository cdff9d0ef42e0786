package testsupport

import (
	"context"
	"fmt"
	"testing"

	"tunebind/internal/binding"
	"tunebind/internal/canonical"
	"tunebind/internal/config"
	"tunebind/internal/queue"
	"tunebind/internal/release"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Pair builds a complete bound pair for recID on relID.
func Pair(recID, relID string) binding.BoundPair {
	return binding.BoundPair{
		RecordingID:    recID,
		ReleaseID:      relID,
		ReleaseGroupID: "rg-" + relID,
		Album:          "Album " + relID,
		ReleaseDate:    "2001-05-01",
		TrackNumber:    1,
		DiscNumber:     1,
		ArtistCredit:   "Artist X",
		AlbumArtist:    "Artist X",
		Title:          "Track " + recID,
		DurationMS:     200000,
		Country:        "US",
		Bucket:         release.BucketAlbum,
	}
}

// MusicRequest returns an enqueue request for a music job keyed by its pair.
func MusicRequest(recID, relID string) queue.EnqueueRequest {
	key, _ := canonical.MusicKey(recID, relID)
	return queue.EnqueueRequest{
		CanonicalKey: key,
		Origin:       queue.OriginSearch,
		Payload:      queue.Payload{Variant: &queue.MusicPayload{Pair: Pair(recID, relID)}},
		MaxAttempts:  3,
	}
}

// VideoRequest returns an enqueue request for a direct video job.
func VideoRequest(videoID string) queue.EnqueueRequest {
	url := "https://www.youtube.com/watch?v=" + videoID
	key, _ := canonical.URLKey(url)
	return queue.EnqueueRequest{
		CanonicalKey: key,
		Origin:       queue.OriginDirect,
		Payload:      queue.Payload{Variant: &queue.VideoPayload{URL: url, Title: "Video " + videoID}},
		MaxAttempts:  3,
	}
}

// MustEnqueue enqueues req and fails the test on error.
func MustEnqueue(t testing.TB, store *queue.Store, req queue.EnqueueRequest) *queue.Job {
	t.Helper()
	job, _, err := store.Enqueue(context.Background(), req)
	if err != nil {
		t.Fatalf("Enqueue(%s) failed: %v", req.CanonicalKey, err)
	}
	return job
}

// MustAdvance claims the next job for workerID and walks it to status.
func MustAdvance(t testing.TB, store *queue.Store, workerID string, status queue.Status) *queue.Job {
	t.Helper()
	ctx := context.Background()
	job, err := store.ClaimNext(ctx, workerID)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if job == nil {
		t.Fatal("expected a claimable job")
	}
	path := []queue.Status{queue.StatusDownloading, queue.StatusPostprocessing, queue.StatusCompleted}
	for _, next := range path {
		if job.Status == status {
			break
		}
		if err := store.Transition(ctx, job.ID, workerID, next, fmt.Sprintf("test advance to %s", next)); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
		job.Status = next
	}
	fresh, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	return fresh
}
