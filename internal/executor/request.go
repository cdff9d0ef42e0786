package executor

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"tunebind/internal/config"
	"tunebind/internal/queue"
	"tunebind/internal/services"
)

// Request is a fully built executor invocation for one job. Only
// AudioRequest and VideoRequest implement it.
type Request interface {
	Kind() queue.MediaKind
	Target() string
	// Args returns the tool arguments writing into workDir.
	Args(workDir string) []string
}

// AudioRequest extracts a single audio stream and converts it to Format.
type AudioRequest struct {
	URL            string
	Format         string
	OutputTemplate string
}

// Kind implements Request.
func (AudioRequest) Kind() queue.MediaKind { return queue.MediaMusic }

// Target implements Request.
func (r AudioRequest) Target() string { return r.URL }

// Args implements Request.
func (r AudioRequest) Args(workDir string) []string {
	args := commonArgs(workDir, r.OutputTemplate)
	args = append(args,
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", r.Format,
		"--audio-quality", "0",
		r.URL,
	)
	return args
}

// VideoRequest downloads video and audio and merges them into Container.
type VideoRequest struct {
	URL            string
	Container      string
	MaxHeight      int
	OutputTemplate string
}

// Kind implements Request.
func (VideoRequest) Kind() queue.MediaKind { return queue.MediaVideo }

// Target implements Request.
func (r VideoRequest) Target() string { return r.URL }

// FormatSelector returns the stream selection expression.
func (r VideoRequest) FormatSelector() string {
	if r.MaxHeight > 0 {
		h := strconv.Itoa(r.MaxHeight)
		return "bestvideo[height<=" + h + "]+bestaudio/best[height<=" + h + "]"
	}
	return "bestvideo+bestaudio/best"
}

// Args implements Request.
func (r VideoRequest) Args(workDir string) []string {
	args := commonArgs(workDir, r.OutputTemplate)
	args = append(args,
		"-f", r.FormatSelector(),
		"--merge-output-format", r.Container,
		r.URL,
	)
	return args
}

func commonArgs(workDir, template string) []string {
	return []string{
		"--no-playlist",
		"--no-progress",
		"--newline",
		"--restrict-filenames",
		"-o", filepath.Join(workDir, template),
		"--print", "after_move:filepath",
	}
}

// BuildRequest turns a job payload into a request. sourceURL is the provider
// item selected for a music job; video jobs carry their own URL.
func BuildRequest(payload queue.Payload, sourceURL string, cfg config.Executor) (Request, error) {
	template := cfg.OutputTemplate
	switch v := payload.Variant.(type) {
	case *queue.MusicPayload:
		url := strings.TrimSpace(sourceURL)
		if url == "" {
			url = strings.TrimSpace(v.SourceURL)
		}
		if url == "" {
			return nil, services.Wrap(services.ErrValidation, "executor", "build request", "music job has no source url", nil)
		}
		format := v.AudioFormat
		if format == "" {
			format = cfg.AudioFormat
		}
		return AudioRequest{URL: url, Format: format, OutputTemplate: template}, nil
	case *queue.VideoPayload:
		container := v.Container
		if container == "" {
			container = cfg.VideoContainer
		}
		return VideoRequest{URL: v.URL, Container: container, MaxHeight: v.MaxHeight, OutputTemplate: template}, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "executor", "build request", fmt.Sprintf("unsupported payload %T", v), nil)
	}
}
