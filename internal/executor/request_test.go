package executor_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"tunebind/internal/config"
	"tunebind/internal/executor"
	"tunebind/internal/queue"
	"tunebind/internal/services"
	"tunebind/internal/testsupport"
)

func TestBuildRequestSplitsAudioAndVideo(t *testing.T) {
	cfg := config.Default().Executor

	music := queue.Payload{Variant: &queue.MusicPayload{Pair: testsupport.Pair("rec-1", "rel-1")}}
	req, err := executor.BuildRequest(music, "https://music.youtube.com/watch?v=abcdefghijk", cfg)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	audio, ok := req.(executor.AudioRequest)
	if !ok {
		t.Fatalf("expected AudioRequest, got %T", req)
	}
	if audio.Format != "mp3" {
		t.Fatalf("expected default audio format, got %q", audio.Format)
	}
	args := audio.Args("/work")
	if slices.Contains(args, "--merge-output-format") {
		t.Fatalf("audio request must not merge video: %v", args)
	}
	if !slices.Contains(args, "-x") || !slices.Contains(args, "bestaudio/best") {
		t.Fatalf("expected audio extraction args, got %v", args)
	}
	if args[len(args)-1] != "https://music.youtube.com/watch?v=abcdefghijk" {
		t.Fatalf("expected url last, got %v", args)
	}

	video := queue.Payload{Variant: &queue.VideoPayload{URL: "https://www.youtube.com/watch?v=abcdefghijk", MaxHeight: 720}}
	req, err = executor.BuildRequest(video, "", cfg)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	vreq, ok := req.(executor.VideoRequest)
	if !ok {
		t.Fatalf("expected VideoRequest, got %T", req)
	}
	args = vreq.Args("/work")
	idx := slices.Index(args, "--merge-output-format")
	if idx < 0 || args[idx+1] != "webm" {
		t.Fatalf("expected merge into default container, got %v", args)
	}
	if slices.Contains(args, "-x") {
		t.Fatalf("video request must not extract audio: %v", args)
	}
	if vreq.FormatSelector() != "bestvideo[height<=720]+bestaudio/best[height<=720]" {
		t.Fatalf("unexpected selector %q", vreq.FormatSelector())
	}
}

func TestBuildRequestHonoursPayloadOverrides(t *testing.T) {
	cfg := config.Default().Executor
	music := queue.Payload{Variant: &queue.MusicPayload{
		Pair:        testsupport.Pair("rec-1", "rel-1"),
		SourceURL:   "https://soundcloud.com/artist/track",
		AudioFormat: "flac",
	}}
	req, err := executor.BuildRequest(music, "", cfg)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	audio := req.(executor.AudioRequest)
	if audio.URL != "https://soundcloud.com/artist/track" || audio.Format != "flac" {
		t.Fatalf("unexpected request %+v", audio)
	}
	if !strings.HasSuffix(audio.Args("/work")[slices.Index(audio.Args("/work"), "-o")+1], cfg.OutputTemplate) {
		t.Fatal("expected output template under work dir")
	}
}

func TestBuildRequestRejectsMusicWithoutSource(t *testing.T) {
	music := queue.Payload{Variant: &queue.MusicPayload{Pair: testsupport.Pair("rec-1", "rel-1")}}
	if _, err := executor.BuildRequest(music, "", config.Default().Executor); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := executor.BuildRequest(queue.Payload{}, "x", config.Default().Executor); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty payload, got %v", err)
	}
}
