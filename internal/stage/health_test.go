package stage_test

import (
	"testing"

	"tunebind/internal/stage"
)

func TestAllReady(t *testing.T) {
	if !stage.AllReady(nil) {
		t.Fatal("expected empty set to be ready")
	}
	records := []stage.Health{stage.Healthy("acquire"), stage.Healthy("organize")}
	if !stage.AllReady(records) {
		t.Fatal("expected healthy records to be ready")
	}
	records = append(records, stage.Unhealthy("tagger", "ffmpeg missing"))
	if stage.AllReady(records) {
		t.Fatal("expected unhealthy record to fail readiness")
	}
}
