package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tunebind/internal/config"
)

const userAgent = "tunebind/0.1"

// Event names a notification trigger.
type Event string

const (
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventBindingFailed  Event = "binding_failed"
	EventSchedulerAdded Event = "scheduler_added"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted:   cfg.Notifications.JobCompleted,
			EventJobFailed:      cfg.Notifications.JobFailed,
			EventBindingFailed:  cfg.Notifications.BindingFailed,
			EventSchedulerAdded: cfg.Notifications.SchedulerAdded,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("Downloaded: %s", payload.text("label"))
		if path := payload.text("path"); path != "" {
			body += "\nFile: " + path
		}
		return message{
			title: "tunebind - Job Complete",
			body:  body,
			tags:  []string{"tunebind", "job", "completed"},
		}, true
	case EventJobFailed:
		body := fmt.Sprintf("Job #%s failed: %s", payload.text("job_id"), payload.text("label"))
		if reason := payload.text("reason"); reason != "" {
			body += " (" + reason + ")"
		}
		if detail := payload.text("error"); detail != "" {
			body += "\n" + detail
		}
		return message{
			title:    "tunebind - Job Failed",
			body:     body,
			tags:     []string{"tunebind", "job", "failed"},
			priority: "high",
		}, true
	case EventBindingFailed:
		return message{
			title: "tunebind - Unresolved Track",
			body: fmt.Sprintf("Could not bind %s - %s: %s",
				payload.text("artist"), payload.text("title"), payload.text("reason")),
			tags: []string{"tunebind", "binding", "review"},
		}, true
	case EventSchedulerAdded:
		return message{
			title: "tunebind - Collection Updated",
			body:  fmt.Sprintf("%s: %s new item(s) queued", payload.text("collection"), payload.text("added")),
			tags:  []string{"tunebind", "scheduler", "added"},
		}, true
	case EventTest:
		return message{
			title:    "tunebind - Test",
			body:     "Notification system test",
			tags:     []string{"tunebind", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// Recorder captures published events in memory. Tests and the bench runner
// use it in place of a network notifier.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

// Recorded is one captured publication.
type Recorded struct {
	Event   Event
	Payload Payload
}

// Publish implements Service.
func (r *Recorder) Publish(_ context.Context, event Event, payload Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{Event: event, Payload: payload})
	return nil
}

// Count reports how many times event was published.
func (r *Recorder) Count(event Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.Events {
		if rec.Event == event {
			n++
		}
	}
	return n
}
