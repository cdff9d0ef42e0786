package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tunebind/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckMusicBrainz(t *testing.T) {
	cases := []struct {
		name   string
		status int
		pass   bool
	}{
		{"ok", http.StatusOK, true},
		{"throttled", http.StatusServiceUnavailable, false},
		{"forbidden", http.StatusForbidden, false},
		{"other", http.StatusTeapot, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotUA string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUA = r.Header.Get("User-Agent")
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			result := CheckMusicBrainz(context.Background(), config.MusicBrainz{BaseURL: srv.URL, UserAgent: "tests/1.0 (a@b.c)"})
			if result.Passed != tc.pass {
				t.Fatalf("expected passed=%v, got %+v", tc.pass, result)
			}
			if gotUA != "tests/1.0 (a@b.c)" {
				t.Fatalf("expected user agent to be sent, got %q", gotUA)
			}
		})
	}
}

func TestCheckMusicBrainz_MissingUserAgent(t *testing.T) {
	result := CheckMusicBrainz(context.Background(), config.MusicBrainz{BaseURL: "http://localhost"})
	if result.Passed {
		t.Fatal("expected failure without user agent")
	}
}

func TestCheckSpotify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			id := r.FormValue("client_id")
			if id != "id" {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"invalid_client"}`)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	ok := CheckSpotify(context.Background(), config.Spotify{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL})
	if !ok.Passed {
		t.Fatalf("expected token check to pass, got %s", ok.Detail)
	}
	bad := CheckSpotify(context.Background(), config.Spotify{ClientID: "wrong", ClientSecret: "nope", TokenURL: srv.URL})
	if bad.Passed {
		t.Fatal("expected rejected credentials to fail")
	}
	missing := CheckSpotify(context.Background(), config.Spotify{})
	if missing.Passed || missing.Detail != "missing client credentials" {
		t.Fatalf("unexpected result without credentials: %+v", missing)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.LibraryDir = t.TempDir()
	cfg.Paths.VideoDir = filepath.Join(t.TempDir(), "unused")

	results := RunAll(context.Background(), &cfg)
	// data + staging + library; video is skipped without video collections
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_ChecksVideoDirForVideoCollections(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.LibraryDir = ""
	cfg.Paths.VideoDir = filepath.Join(t.TempDir(), "missing")
	cfg.Collections = []config.Collection{{ID: "clips", Source: "youtube", URL: "https://www.youtube.com/playlist?list=PL1", MediaType: "video", Enabled: true}}

	results := RunAll(context.Background(), &cfg)
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Video directory" {
		t.Fatalf("expected video directory failure, got %+v", failed)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"yt-dlp", "ffmpeg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)
	cfg := config.Default()
	statuses := CheckSystemDeps(&cfg)
	for _, st := range statuses {
		if !st.Available {
			t.Fatalf("expected %s to be available: %s", st.Name, st.Detail)
		}
	}
}

func TestCheckNotificationsFromConfig(t *testing.T) {
	cfg := config.Default()
	if r := CheckNotificationsFromConfig(&cfg); !r.Passed || r.Detail != "Disabled" {
		t.Fatalf("unexpected disabled result: %+v", r)
	}
	cfg.Notifications.NtfyTopic = "my-topic"
	if r := CheckNotificationsFromConfig(&cfg); r.Passed {
		t.Fatal("expected bare topic name to fail")
	}
}
