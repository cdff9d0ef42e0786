package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileVerified(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.bin"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestMoveFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "staging", "track.mp3")
	dst := filepath.Join(dir, "library", "Artist", "Album", "01 Track.mp3")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source to be gone, stat err: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "audio" {
		t.Fatalf("unexpected destination content %q: %v", got, err)
	}
	if _, err := os.Stat(dst + ".partial"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no partial file left behind, stat err: %v", err)
	}
}

func TestMoveFileAcrossFilesystems(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp3")
	dst := filepath.Join(dir, "out", "dst.mp3")
	if err := os.WriteFile(src, []byte("cross-device"), 0o644); err != nil {
		t.Fatal(err)
	}

	origRename := renameFile
	renameFile = func(oldpath, newpath string) error {
		if oldpath == src {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return os.Rename(oldpath, newpath)
	}
	t.Cleanup(func() { renameFile = origRename })

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source removed after copy, stat err: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "cross-device" {
		t.Fatalf("unexpected destination content %q: %v", got, err)
	}
}

func TestReplaceFileReplacesExistingTarget(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "track.mp3")
	replacement := filepath.Join(tmp, "track.mp3.partial")

	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}
	if err := os.WriteFile(replacement, []byte("new"), 0o644); err != nil {
		t.Fatalf("write replacement: %v", err)
	}

	if err := ReplaceFile(replacement, target); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}
	payload, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(payload) != "new" {
		t.Fatalf("expected replaced payload, got %q", string(payload))
	}
	if _, err := os.Stat(target + backupSuffix); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected backup cleanup, stat err: %v", err)
	}
}

func TestReplaceFileRollbackRestoresOriginalTarget(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "track.mp3")
	replacement := filepath.Join(tmp, "track.mp3.partial")

	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}
	if err := os.WriteFile(replacement, []byte("new"), 0o644); err != nil {
		t.Fatalf("write replacement: %v", err)
	}

	origRename := renameFile
	renameFile = func(oldpath, newpath string) error {
		if oldpath == replacement && newpath == target {
			return errors.New("injected rename failure")
		}
		return os.Rename(oldpath, newpath)
	}
	t.Cleanup(func() { renameFile = origRename })

	if err := ReplaceFile(replacement, target); err == nil {
		t.Fatal("expected replacement failure")
	}
	payload, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read restored target: %v", err)
	}
	if string(payload) != "old" {
		t.Fatalf("expected rollback to restore original payload, got %q", string(payload))
	}
}

func TestReplaceFileRejectsBadInput(t *testing.T) {
	tmp := t.TempDir()
	dirTemp := filepath.Join(tmp, "dir")
	if err := os.Mkdir(dirTemp, 0o755); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name         string
		temp, target string
	}{
		{"empty temp", "", filepath.Join(tmp, "x")},
		{"empty target", filepath.Join(tmp, "x"), ""},
		{"same path", filepath.Join(tmp, "x"), filepath.Join(tmp, "x")},
		{"missing temp", filepath.Join(tmp, "missing"), filepath.Join(tmp, "x")},
		{"directory temp", dirTemp, filepath.Join(tmp, "x")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ReplaceFile(tc.temp, tc.target); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}
