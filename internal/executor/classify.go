package executor

import (
	"regexp"
	"strconv"
	"strings"

	"tunebind/internal/services"
)

// Permanent unavailability reasons.
const (
	ReasonRemoved          = "removed_or_deleted"
	ReasonPrivate          = "private_or_members_only"
	ReasonAgeRestricted    = "age_restricted"
	ReasonRegionRestricted = "region_restricted"
	ReasonFormatMissing    = "format_unavailable"
	ReasonDRM              = "drm_protected"
	ReasonForbidden        = "access_forbidden"
	ReasonUnavailable      = "content_unavailable"
	ReasonPostprocess      = "postprocess_failed"
	ReasonTransient        = "transient_network"
	ReasonTimedOut         = "timed_out"
	ReasonBinaryMissing    = "binary_missing"
	ReasonUnclassified     = "unclassified_failure"
)

type signal struct {
	reason  string
	needles []string
}

var permanentSignals = []signal{
	{ReasonRemoved, []string{
		"video unavailable. this video has been removed by the uploader",
		"has been removed by the uploader",
		"video has been removed",
		"this video is unavailable",
	}},
	{ReasonPrivate, []string{"private video", "members-only", "members only", "join this channel", "this video is private"}},
	{ReasonAgeRestricted, []string{"sign in to confirm your age", "age-restricted", "age restricted", "age restriction"}},
	{ReasonRegionRestricted, []string{
		"not available in your country",
		"video unavailable in your country",
		"geo-restricted",
		"geoblocked",
		"geo blocked",
		"the uploader has not made this video available in your country",
	}},
	{ReasonFormatMissing, []string{"requested format is not available", "requested format not available", "requested format is unavailable"}},
	{ReasonDRM, []string{"this video is drm protected", "drm protected"}},
	{ReasonForbidden, []string{"http error 403"}},
	{ReasonRemoved, []string{"http error 404"}},
	{ReasonPrivate, []string{"private"}},
	{ReasonUnavailable, []string{"not available"}},
}

// Postprocessor output. The bracketed tags are only trusted on stderr since
// successful runs print them on stdout too.
var (
	postprocessNeedles = []string{
		"postprocessing:",
		"postprocessor",
		"conversion failed",
		"ffmpeg not found",
		"ffprobe not found",
		"ffprobe and ffmpeg not found",
	}
	postprocessTags = []string{"[merger]", "[extractaudio]", "[ffmpegextractaudio]"}
)

var drmWord = regexp.MustCompile(`\bdrm\b`)

var transientMarkers = []string{
	"timed out",
	"timeout",
	"connection reset",
	"temporary failure",
	"network error",
	"unable to download webpage",
	"couldn't download webpage",
	"http error 5",
	"service unavailable",
	"too many requests",
}

// UnavailableReason returns the permanent reason in output, if any. Transient
// markers win: a message that mentions both is never permanent.
func UnavailableReason(output string) (string, bool) {
	msg := strings.ToLower(output)
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return "", false
		}
	}
	for _, sig := range permanentSignals {
		for _, needle := range sig.needles {
			if strings.Contains(msg, needle) {
				return sig.reason, true
			}
		}
	}
	if strings.Contains(msg, "unavailable") && strings.Contains(msg, "region") {
		return ReasonRegionRestricted, true
	}
	if drmWord.MatchString(msg) {
		return ReasonDRM, true
	}
	return "", false
}

// postprocessFailed reports whether a failed run died in the postprocessor
// chain, after the media was already fetched.
func postprocessFailed(result Result) bool {
	stderr := strings.ToLower(result.StderrTail)
	combined := stderr + "\n" + strings.ToLower(result.StdoutTail)
	for _, needle := range postprocessNeedles {
		if strings.Contains(combined, needle) {
			return true
		}
	}
	for _, tag := range postprocessTags {
		if strings.Contains(stderr, tag) {
			return true
		}
	}
	return false
}

// Classify converts a failed run into a marked error. Cancellation and
// timeouts keep their own markers. Postprocessor and permanent failures are
// terminal; anything else, recognised as transient or not, is retried.
func Classify(op string, result Result) error {
	if result.ExitCode == 0 && result.Err == nil {
		return nil
	}
	detail := lastLine(result.StderrTail)
	if detail == "" {
		detail = lastLine(result.StdoutTail)
	}
	switch {
	case result.Interrupted:
		return services.WrapReason(services.ErrCancelled, "executor", op, "cancelled", "run interrupted", result.Err)
	case result.TimedOut:
		return services.WrapReason(services.ErrTimeout, "executor", op, ReasonTimedOut, "run exceeded timeout", result.Err)
	case result.ExitCode == 127:
		return services.WrapReason(services.ErrConfiguration, "executor", op, ReasonBinaryMissing, "executor binary not found", result.Err)
	}
	if postprocessFailed(result) {
		return services.WrapReason(services.ErrPostprocess, "executor", op, ReasonPostprocess, detail, nil)
	}
	if reason, ok := UnavailableReason(result.StderrTail + "\n" + result.StdoutTail); ok {
		return services.WrapReason(services.ErrPermanent, "executor", op, reason, detail, nil)
	}
	reason := ReasonUnclassified
	msg := strings.ToLower(result.StderrTail + "\n" + result.StdoutTail)
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			reason = ReasonTransient
			break
		}
	}
	if detail == "" {
		detail = "exit status " + strconv.Itoa(result.ExitCode)
	}
	return services.WrapReason(services.ErrTransient, "executor", op, reason, detail, nil)
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
