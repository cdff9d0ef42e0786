package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpeg reports the ffmpeg binary the acquisition executor will use
// for extraction.
//
// Standalone yt-dlp builds prefer an ffmpeg that sits next to the yt-dlp
// executable and fall back to PATH. An explicitly configured path that is not
// the bare "ffmpeg" name wins over both.
func ResolveFFmpeg(executorCommand, configured string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used by yt-dlp for audio extraction and merging",
	}

	configured = strings.TrimSpace(configured)
	if configured != "" && configured != "ffmpeg" {
		result.Command = configured
		if resolved, err := exec.LookPath(configured); err == nil {
			result.Resolved = resolved
			result.Available = true
			return result
		}
		result.Detail = fmt.Sprintf("binary %q not found", configured)
		return result
	}

	if binary := strings.TrimSpace(executorCommand); binary != "" {
		if resolved, err := exec.LookPath(binary); err == nil {
			candidate := filepath.Join(filepath.Dir(resolved), executableName("ffmpeg"))
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Resolved = candidate
				result.Available = true
				return result
			}
		}
	}

	result.Command = "ffmpeg"
	if ffmpegPath, err := exec.LookPath("ffmpeg"); err == nil {
		result.Resolved = ffmpegPath
		result.Available = true
		return result
	}
	result.Detail = `binary "ffmpeg" not found`
	return result
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
