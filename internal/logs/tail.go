package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// TailResult holds the selected lines and the byte offset after them.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail returns the last n lines of path. A missing file yields no lines.
func Tail(path string, n int) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}
	if n <= 0 {
		return TailResult{Offset: info.Size()}, nil
	}

	ring := make([]string, n)
	count, next := 0, 0
	var offset int64
	err = scanLines(file, func(line string, consumed int64) {
		ring[next] = line
		next = (next + 1) % n
		if count < n {
			count++
		}
		offset += consumed
	})
	if err != nil {
		return TailResult{}, err
	}

	lines := make([]string, count)
	start := 0
	if count == n {
		start = next
	}
	for i := range count {
		lines[i] = ring[(start+i)%n]
	}
	return TailResult{Lines: lines, Offset: offset}, nil
}

// ReadFrom returns complete lines starting at offset. An offset beyond the
// end of the file restarts at zero.
func ReadFrom(path string, offset int64) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	result := TailResult{Offset: offset}
	err = scanLines(file, func(line string, consumed int64) {
		result.Lines = append(result.Lines, line)
		result.Offset += consumed
	})
	return result, err
}

// Follow emits every line appended to path after offset, polling at the
// given interval, until ctx ends.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, emit func(string)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		result, err := ReadFrom(path, offset)
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			emit(line)
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// scanLines calls fn for each newline-terminated line of r along with the
// byte count it consumed. A trailing partial line is left unread so the
// next poll sees it whole.
func scanLines(r io.Reader, fn func(line string, consumed int64)) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		raw, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			buf := append([]byte(nil), raw...)
			for errors.Is(err, bufio.ErrBufferFull) && len(buf) < maxLineBytes {
				raw, err = reader.ReadSlice('\n')
				buf = append(buf, raw...)
			}
			raw = buf
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				return fmt.Errorf("read log file: line exceeds %d bytes", maxLineBytes)
			}
			return fmt.Errorf("read log file: %w", err)
		}
		line := raw[:len(raw)-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		fn(string(line), int64(len(raw)))
	}
}
