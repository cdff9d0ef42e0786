package executor

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// Spec is one subprocess invocation.
type Spec struct {
	Bin     string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Result captures how a subprocess ended.
type Result struct {
	ExitCode    int
	Duration    time.Duration
	Interrupted bool
	TimedOut    bool
	StdoutTail  string
	StderrTail  string
	Err         error
}

// Runner executes subprocesses. SubprocessRunner is the production
// implementation; tests substitute scripted fakes.
type Runner interface {
	Run(ctx context.Context, spec Spec) Result
}

// SubprocessRunner runs commands with os/exec, optionally teeing output.
type SubprocessRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

const tailSize = 64 * 1024

type tailBuffer struct {
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = tailSize
	}
	return &tailBuffer{buf: make([]byte, 0, max), max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return len(p), nil
	}
	overflow := len(t.buf) + len(p) - t.max
	if overflow > 0 {
		t.buf = append(t.buf[:0], t.buf[overflow:]...)
	}
	t.buf = append(t.buf, p...)
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

// NewSubprocessRunner returns a runner that mirrors output to stdout/stderr
// when they are non-nil.
func NewSubprocessRunner(stdout, stderr io.Writer) *SubprocessRunner {
	return &SubprocessRunner{Stdout: stdout, Stderr: stderr}
}

// Run executes spec and never returns a nil Result. Exit code 130 marks a
// cancelled run and 127 a missing binary.
func (r *SubprocessRunner) Run(ctx context.Context, spec Spec) Result {
	start := time.Now()
	if spec.Bin == "" {
		return Result{ExitCode: 1, Duration: time.Since(start), Err: errors.New("missing binary")}
	}

	runCtx := ctx
	cancel := func() {}
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, spec.Bin, spec.Args...)
	cmd.Dir = spec.Dir
	configureCommandForTermination(cmd)
	cmd.Cancel = func() error {
		terminateCommand(cmd)
		return nil
	}
	cmd.WaitDelay = 5 * time.Second

	stdoutTail := newTailBuffer(tailSize)
	stderrTail := newTailBuffer(tailSize)
	if r.Stdout != nil {
		cmd.Stdout = io.MultiWriter(r.Stdout, stdoutTail)
	} else {
		cmd.Stdout = stdoutTail
	}
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, stderrTail)
	} else {
		cmd.Stderr = stderrTail
	}

	err := cmd.Run()
	result := Result{
		Duration:   time.Since(start),
		StdoutTail: stdoutTail.String(),
		StderrTail: stderrTail.String(),
		Err:        err,
	}
	if err == nil {
		return result
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
		result.ExitCode = 124
		return result
	}
	if ctx.Err() != nil {
		result.Interrupted = true
		result.ExitCode = 130
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result
	}
	if errors.Is(err, exec.ErrNotFound) {
		result.ExitCode = 127
		return result
	}
	result.ExitCode = 1
	return result
}
