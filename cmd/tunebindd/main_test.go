package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDaemonCommandRejectsInvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newDaemonCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", path})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected invalid config to stop the daemon before start")
	}
	if !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDaemonCommandRejectsArguments(t *testing.T) {
	cmd := newDaemonCommand()
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected positional arguments to be rejected")
	}
}
