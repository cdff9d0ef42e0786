package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tunebind/internal/config"
	"tunebind/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"label": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "job completed",
			event:         notifications.EventJobCompleted,
			payload:       notifications.Payload{"label": "Artist X - Track Y", "path": "/music/Artist X/Album/01 Track Y.mp3"},
			expectTitle:   "tunebind - Job Complete",
			expectMessage: "Downloaded: Artist X - Track Y\nFile: /music/Artist X/Album/01 Track Y.mp3",
			expectTags:    "tunebind,job,completed",
		},
		{
			name:  "job failed",
			event: notifications.EventJobFailed,
			payload: notifications.Payload{
				"job_id": int64(7),
				"label":  "Artist X - Track Y",
				"reason": "drm_protected",
				"error":  errors.New("permanent failure: executor: download"),
			},
			expectTitle:    "tunebind - Job Failed",
			expectMessage:  "Job #7 failed: Artist X - Track Y (drm_protected)\npermanent failure: executor: download",
			expectTags:     "tunebind,job,failed",
			expectPriority: "high",
		},
		{
			name:          "binding failed",
			event:         notifications.EventBindingFailed,
			payload:       notifications.Payload{"artist": "Artist X", "title": "Track Y", "reason": "no_album_match"},
			expectTitle:   "tunebind - Unresolved Track",
			expectMessage: "Could not bind Artist X - Track Y: no_album_match",
			expectTags:    "tunebind,binding,review",
		},
		{
			name:          "scheduler added",
			event:         notifications.EventSchedulerAdded,
			payload:       notifications.Payload{"collection": "road-trip", "added": 3},
			expectTitle:   "tunebind - Collection Updated",
			expectMessage: "road-trip: 3 new item(s) queued",
			expectTags:    "tunebind,scheduler,added",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for disabled event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobCompleted = false
	cfg.Notifications.SchedulerAdded = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventJobCompleted,
		notifications.EventSchedulerAdded,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"label": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic throttled", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}

func TestRecorderCounts(t *testing.T) {
	rec := &notifications.Recorder{}
	_ = rec.Publish(context.Background(), notifications.EventJobFailed, nil)
	_ = rec.Publish(context.Background(), notifications.EventJobFailed, nil)
	_ = rec.Publish(context.Background(), notifications.EventJobCompleted, nil)
	if rec.Count(notifications.EventJobFailed) != 2 || rec.Count(notifications.EventJobCompleted) != 1 {
		t.Fatalf("unexpected counts: %+v", rec.Events)
	}
}
