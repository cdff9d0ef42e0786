package worker_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"tunebind/internal/acquire"
	"tunebind/internal/executor"
	"tunebind/internal/organizer"
	"tunebind/internal/queue"
	"tunebind/internal/testsupport"
)

const stubFFmpeg = `in=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
  last="$a"
done
cp "$in" "$last"
`

func TestMusicJobEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}
	cfg := testsupport.NewConfig(t)
	bin := filepath.Join(testsupport.BaseDir(cfg), "bin")
	cfg.Executor.Binary = testsupport.WriteScript(t, filepath.Join(bin, "yt-dlp"),
		"printf 'audio-bytes' > \"$PWD/Track.mp3\"\necho \"$PWD/Track.mp3\"\n")
	cfg.Executor.FFmpegBinary = testsupport.WriteScript(t, filepath.Join(bin, "ffmpeg-stub"), stubFFmpeg)

	downloader := acquire.NewDownloader(cfg, executor.New(cfg.Executor, nil, nil), nil, nil)
	h := newHarnessWithConfig(t, cfg, downloader, organizer.NewOrganizer(cfg, nil))

	req := testsupport.MusicRequest("rec-1", "rel-1")
	req.Payload.Music().SourceURL = "https://music.youtube.com/watch?v=dQw4w9WgXcQ"
	job := testsupport.MustEnqueue(t, h.store, req)

	h.runOnce(t)

	got := h.job(t, job.ID)
	if got.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", got.Status, got.LastError)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "Artist X", "Album rel-1", "01 Track rec-1.mp3")
	if got.OutputPath != want {
		t.Fatalf("unexpected output path %q, want %q", got.OutputPath, want)
	}
	if contents := testsupport.ReadFile(t, want); contents != "audio-bytes" {
		t.Fatalf("unexpected library file contents %q", contents)
	}
	if _, err := os.Stat(acquire.WorkDir(cfg.Paths.StagingDir, job.ID)); !os.IsNotExist(err) {
		t.Fatalf("expected staging dir removed, stat err %v", err)
	}
}

func TestEmptyDownloadFailsWithoutRetry(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}
	cfg := testsupport.NewConfig(t)
	cfg.Executor.Binary = testsupport.WriteScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin", "yt-dlp"),
		": > \"$PWD/clip.webm\"\necho \"$PWD/clip.webm\"\n")

	downloader := acquire.NewDownloader(cfg, executor.New(cfg.Executor, nil, nil), nil, nil)
	h := newHarnessWithConfig(t, cfg, downloader, organizer.NewOrganizer(cfg, nil))
	job := testsupport.MustEnqueue(t, h.store, testsupport.VideoRequest("dQw4w9WgXcQ"))

	h.runOnce(t)

	got := h.job(t, job.ID)
	if got.Status != queue.StatusFailed || got.FailureReason != "empty_output" {
		t.Fatalf("expected empty_output failure, got %s %q", got.Status, got.FailureReason)
	}
	if entries, _ := os.ReadDir(cfg.Paths.VideoDir); len(entries) != 0 {
		t.Fatalf("nothing may reach the video dir, found %d entries", len(entries))
	}
}
