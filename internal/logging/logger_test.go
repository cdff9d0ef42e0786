package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tunebind/internal/config"
	"tunebind/internal/logging"
	"tunebind/internal/services"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("file message", logging.String("k", "v"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", content, err)
	}
	if entry["msg"] != "file message" || entry["k"] != "v" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %+v", entry)
	}
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden message")
	logger.Warn("visible message", logging.String("job", "7"))

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Fatalf("expected info line to be filtered, got %q", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Fatalf("expected warn line, got %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "invalid", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("debug line")
	logger.Info("info line")
	if strings.Contains(buf.String(), "debug line") {
		t.Fatalf("expected debug to be filtered at default level, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "info line") {
		t.Fatalf("expected info line, got %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, 123)
	ctx = services.WithStage(ctx, "download")
	ctx = services.WithCollection(ctx, "road-trip")
	ctx = services.WithCorrelationID(ctx, "req-xyz")

	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WithContext(ctx, base).Info("contextual log")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry[logging.FieldJobID] != float64(123) {
		t.Fatalf("job_id = %v", entry[logging.FieldJobID])
	}
	if entry[logging.FieldStage] != "download" {
		t.Fatalf("stage = %v", entry[logging.FieldStage])
	}
	if entry[logging.FieldCollection] != "road-trip" {
		t.Fatalf("collection = %v", entry[logging.FieldCollection])
	}
	if entry[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("correlation_id = %v", entry[logging.FieldCorrelationID])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "slow authority", "musicbrainz_slow")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected %s in %+v", key, entry)
		}
	}
}

func TestTeeLoggerFansOut(t *testing.T) {
	var first, second bytes.Buffer
	a, _ := logging.New(logging.Options{Format: "json", Writer: &first})
	b, _ := logging.New(logging.Options{Format: "json", Writer: &second})

	logging.TeeLogger(a, b.Handler()).With(logging.String("scope", "tee")).Info("both")
	if !strings.Contains(first.String(), `"scope":"tee"`) || !strings.Contains(second.String(), `"scope":"tee"`) {
		t.Fatalf("expected both sinks to receive attrs: %q / %q", first.String(), second.String())
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "tunebind-20200101.log")
	fresh := filepath.Join(dir, "tunebind-20990101.log")
	active := filepath.Join(dir, logging.LogFileName)
	for _, path := range []string{old, fresh, active} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -30)
	for _, path := range []string{old, active} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, "tunebind*.log", 7)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{fresh, active} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestDecisionAttrsAndScore(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	decision := logging.Decision{Type: "binding_selection", Result: "selected", Reason: "album"}
	logger.Info("picked", logging.Args(decision.Attrs(logging.Score("score", 81.234567))...)...)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry[logging.FieldDecisionType] != "binding_selection" || entry[logging.FieldDecisionReason] != "album" {
		t.Fatalf("unexpected decision fields: %+v", entry)
	}
	if entry["score"] != 81.2346 {
		t.Fatalf("expected rounded score, got %v", entry["score"])
	}

	accepted := logging.Decision{Type: "provider_candidate", Result: "accepted"}.Attrs()
	if len(accepted) != 2 {
		t.Fatalf("expected reason to be omitted when empty, got %+v", accepted)
	}
}
