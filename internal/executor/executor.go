package executor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tunebind/internal/config"
	"tunebind/internal/logging"
	"tunebind/internal/services"
)

// Executor runs download requests through the acquisition tool.
type Executor struct {
	binary  string
	timeout time.Duration
	runner  Runner
	logger  *slog.Logger
}

// New builds an executor from the [executor] section. A nil runner selects
// SubprocessRunner.
func New(cfg config.Executor, runner Runner, logger *slog.Logger) *Executor {
	if runner == nil {
		runner = NewSubprocessRunner(nil, nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		binary:  cfg.Binary,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "executor"),
	}
}

// Download runs req inside workDir and returns the path of the produced file.
// The file is verified to exist and be non-empty.
func (e *Executor) Download(ctx context.Context, req Request, workDir string) (string, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "executor", "prepare work dir", workDir, err)
	}
	spec := Spec{Bin: e.binary, Args: req.Args(workDir), Dir: workDir, Timeout: e.timeout}
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("executor started",
		logging.String("kind", string(req.Kind())),
		logging.String("target", req.Target()),
	)

	result := e.runner.Run(ctx, spec)
	if err := Classify("download", result); err != nil {
		details := services.Details(err)
		logger.Warn("executor failed",
			logging.Int("exit_code", result.ExitCode),
			logging.Duration("duration", result.Duration),
			logging.String(logging.FieldReason, details.Reason),
			logging.String("stderr_tail", lastLine(result.StderrTail)),
		)
		return "", err
	}

	path := outputPath(result.StdoutTail, workDir)
	if path == "" {
		return "", services.WrapReason(services.ErrIntegrity, "executor", "locate output", "missing_output", "executor reported success but produced no file", nil)
	}
	if err := VerifyOutput(path); err != nil {
		return "", err
	}
	logger.Info("executor finished",
		logging.String("output", path),
		logging.Duration("duration", result.Duration),
	)
	return path, nil
}

// VerifyOutput requires path to be a regular, non-empty file.
func VerifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.WrapReason(services.ErrIntegrity, "executor", "verify output", "missing_output", path, err)
	}
	if !info.Mode().IsRegular() {
		return services.WrapReason(services.ErrIntegrity, "executor", "verify output", "missing_output", path+" is not a regular file", nil)
	}
	if info.Size() == 0 {
		return services.WrapReason(services.ErrIntegrity, "executor", "verify output", "empty_output", path+" is empty", nil)
	}
	return nil
}

var partialSuffixes = []string{".part", ".ytdl", ".tmp", ".temp"}

// outputPath prefers the path printed by the tool and falls back to the
// newest finished file in workDir.
func outputPath(stdout, workDir string) string {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || !filepath.IsAbs(line) {
			continue
		}
		if info, err := os.Stat(line); err == nil && info.Mode().IsRegular() {
			return line
		}
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return ""
	}
	type candidate struct {
		path string
		mod  time.Time
	}
	var files []candidate
	for _, entry := range entries {
		if entry.IsDir() || isPartial(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{path: filepath.Join(workDir, entry.Name()), mod: info.ModTime()})
	}
	if len(files) == 0 {
		return ""
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.After(files[j].mod)
		}
		return files[i].path < files[j].path
	})
	return files[0].path
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

