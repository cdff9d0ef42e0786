package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

var (
	statFile   = os.Stat
	renameFile = os.Rename
	removeFile = os.Remove
)

const backupSuffix = ".tunebind.bak"

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// MoveFile places src at dst, creating parent directories. A rename is used
// when possible; across filesystems the file is copied next to dst under a
// temporary name, verified, swapped into place and only then removed from
// src. An existing dst is replaced via ReplaceFile.
func MoveFile(src, dst string) error {
	src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
	if src == "" || dst == "" {
		return errors.New("move paths must be set")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	staged := dst + ".partial"
	err := renameFile(src, staged)
	switch {
	case err == nil:
	case errors.Is(err, syscall.EXDEV):
		if err := CopyFileVerified(src, staged); err != nil {
			return fmt.Errorf("copy across filesystems: %w", err)
		}
		if err := removeFile(src); err != nil {
			_ = removeFile(staged)
			return fmt.Errorf("remove source after copy: %w", err)
		}
	default:
		return fmt.Errorf("stage %s: %w", filepath.Base(dst), err)
	}
	return ReplaceFile(staged, dst)
}

// ReplaceFile replaces targetPath with tempPath while preserving the
// previous target content as a rollback backup until replacement succeeds.
func ReplaceFile(tempPath, targetPath string) error {
	temp := strings.TrimSpace(tempPath)
	target := strings.TrimSpace(targetPath)
	if temp == "" {
		return fmt.Errorf("replacement temp path is empty")
	}
	if target == "" {
		return fmt.Errorf("replacement target path is empty")
	}
	if temp == target {
		return fmt.Errorf("replacement temp and target paths must differ")
	}

	tempInfo, err := statFile(temp)
	if err != nil {
		return fmt.Errorf("stat replacement temp %q: %w", temp, err)
	}
	if tempInfo.IsDir() {
		return fmt.Errorf("replacement temp path is a directory: %s", temp)
	}

	backup := target + backupSuffix
	if _, err := statFile(backup); err == nil {
		if removeErr := removeFile(backup); removeErr != nil {
			return fmt.Errorf("remove stale replacement backup %q: %w", backup, removeErr)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat replacement backup %q: %w", backup, err)
	}

	hadTarget := false
	if _, err := statFile(target); err == nil {
		hadTarget = true
		if err := renameFile(target, backup); err != nil {
			return fmt.Errorf("move existing target to backup: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat replacement target %q: %w", target, err)
	}

	if err := renameFile(temp, target); err != nil {
		if hadTarget {
			if rollbackErr := renameFile(backup, target); rollbackErr != nil {
				return fmt.Errorf("replace failed (%v) and rollback failed (%w)", err, rollbackErr)
			}
		}
		return fmt.Errorf("replace target with temp: %w", err)
	}

	if hadTarget {
		if err := removeFile(backup); err != nil {
			return fmt.Errorf("cleanup replacement backup %q: %w", backup, err)
		}
	}
	return nil
}
