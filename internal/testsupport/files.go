package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, and any missing parents, holding size bytes. A
// size <= 0 writes one byte so the file never reads as an empty download.
func WriteFile(t testing.TB, path string, size int64) string {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	mustWrite(t, path, bytes.Repeat([]byte{'B'}, int(size)), 0o644)
	return path
}

// WriteScript writes an executable /bin/sh script with the given body.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()
	mustWrite(t, path, []byte("#!/bin/sh\n"+body), 0o755)
	return path
}

// ReadFile returns the contents of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func mustWrite(t testing.TB, path string, data []byte, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
