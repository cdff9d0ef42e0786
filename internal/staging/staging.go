package staging

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tunebind/internal/logging"
)

const jobDirPrefix = "job-"

// JobDir is the work directory of job id.
func JobDir(stagingDir string, id int64) string {
	return filepath.Join(stagingDir, fmt.Sprintf("%s%d", jobDirPrefix, id))
}

// ParseJobDir extracts the job id from a work directory name.
func ParseJobDir(name string) (int64, bool) {
	rest, ok := strings.CutPrefix(name, jobDirPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// DirInfo describes one directory under the staging root.
type DirInfo struct {
	Name    string
	Path    string
	JobID   int64
	ModTime time.Time
	Size    int64
}

// CleanResult lists removed directories and per-path failures.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory with the error that kept it in place.
type CleanupError struct {
	Path  string
	Error error
}

// List returns every directory under stagingDir. A missing root is empty.
func List(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		id, _ := ParseJobDir(entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			JobID:   id,
			ModTime: info.ModTime(),
			Size:    dirSize(path),
		})
	}
	return dirs, nil
}

// CleanOrphaned removes job directories whose job is not in active.
// Directories that do not follow the job-<id> layout are left for
// CleanStale.
func CleanOrphaned(ctx context.Context, stagingDir string, active map[int64]struct{}, logger *slog.Logger) CleanResult {
	return clean(ctx, stagingDir, logger, "orphaned", func(d DirInfo) bool {
		if d.JobID == 0 {
			return false
		}
		_, running := active[d.JobID]
		return !running
	})
}

// CleanStale removes directories not modified within maxAge, except those
// belonging to an active job.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, active map[int64]struct{}, logger *slog.Logger) CleanResult {
	cutoff := time.Now().Add(-maxAge)
	return clean(ctx, stagingDir, logger, "stale", func(d DirInfo) bool {
		if _, running := active[d.JobID]; running && d.JobID != 0 {
			return false
		}
		return d.ModTime.Before(cutoff)
	})
}

func clean(ctx context.Context, stagingDir string, logger *slog.Logger, kind string, remove func(DirInfo) bool) CleanResult {
	if logger == nil {
		logger = logging.NewNop()
	}
	var result CleanResult
	dirs, err := List(stagingDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		return result
	}
	for _, d := range dirs {
		if ctx.Err() != nil {
			return result
		}
		if !remove(d) {
			continue
		}
		if err := os.RemoveAll(d.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: d.Path, Error: err})
			logger.Warn("failed to remove staging directory",
				logging.String("path", d.Path),
				logging.String("kind", kind),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, d.Path)
		logger.Info("removed staging directory",
			logging.String("path", d.Path),
			logging.String("kind", kind),
			logging.Int64(logging.FieldJobID, d.JobID),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if info, err := entry.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
