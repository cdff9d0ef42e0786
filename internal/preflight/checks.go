package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sys/unix"

	"tunebind/internal/config"
	"tunebind/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckMusicBrainz performs one identified lookup against the authority.
// A 503 is reported as throttling rather than an outage.
func CheckMusicBrainz(ctx context.Context, cfg config.MusicBrainz) Result {
	const name = "MusicBrainz"

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return Result{Name: name, Detail: "missing user agent"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	endpoint := base + "/recording?fmt=json&limit=1&query=" + url.QueryEscape(`recording:"test"`)
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("lookup failed (%v)", err)}
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case resp.StatusCode == http.StatusServiceUnavailable:
		return Result{Name: name, Detail: "throttled (503); check user_agent and min_interval_ms"}
	case resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "rejected (403); user_agent must identify the client"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("lookup failed (%d)", resp.StatusCode)}
	}
}

// CheckSpotify requests a client credentials token.
func CheckSpotify(ctx context.Context, cfg config.Spotify) Result {
	const name = "Spotify"

	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return Result{Name: name, Detail: "missing client credentials"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	checkCtx = context.WithValue(checkCtx, oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second})

	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	token, err := creds.Token(checkCtx)
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && retrieve.Response != nil {
			return Result{Name: name, Detail: fmt.Sprintf("token request rejected (%d)", retrieve.Response.StatusCode)}
		}
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	if !token.Valid() {
		return Result{Name: name, Detail: "token endpoint returned an invalid token"}
	}
	return Result{Name: name, Passed: true, Detail: "Token issued"}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// The daemon refuses to start when a required binary is missing; the CLI
// status command only reports.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	for i, st := range statuses {
		if st.Name != "FFmpeg" || st.Available {
			continue
		}
		if resolved := deps.ResolveFFmpeg(cfg.Executor.Binary, cfg.Executor.FFmpegBinary); resolved.Available {
			statuses[i] = resolved
		}
	}
	return statuses
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return err.Error()
}
