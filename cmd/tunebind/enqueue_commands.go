package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tunebind/internal/binding"
	"tunebind/internal/config"
	"tunebind/internal/daemon"
	"tunebind/internal/intake"
	"tunebind/internal/queue"
)

type enqueueFlags struct {
	destination string
	format      string
	force       bool
}

func (f *enqueueFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.destination, "dest", "", "Destination directory (defaults to paths.library_dir or paths.video_dir)")
	cmd.Flags().StringVar(&f.format, "format", "", "Audio format override (mp3, m4a, flac, opus)")
	cmd.Flags().BoolVar(&f.force, "force", false, "Enqueue even when the item already completed")
}

func (f *enqueueFlags) options(origin queue.Origin) (intake.Options, error) {
	opts := intake.Options{
		Origin:      origin,
		AudioFormat: strings.ToLower(strings.TrimSpace(f.format)),
		Force:       f.force,
	}
	if dest := strings.TrimSpace(f.destination); dest != "" {
		expanded, err := config.ExpandPath(dest)
		if err != nil {
			return opts, fmt.Errorf("resolve destination: %w", err)
		}
		opts.Destination = expanded
	}
	return opts, nil
}

type intentFlags struct {
	artist      string
	title       string
	album       string
	duration    string
	recordingID string
	releaseID   string
}

func (f *intentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.artist, "artist", "a", "", "Track artist")
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Track title")
	cmd.Flags().StringVar(&f.album, "album", "", "Album hint")
	cmd.Flags().StringVarP(&f.duration, "duration", "d", "", "Duration hint (3:45, 225s, or milliseconds)")
	cmd.Flags().StringVar(&f.recordingID, "recording-id", "", "Bind this MusicBrainz recording instead of searching")
	cmd.Flags().StringVar(&f.releaseID, "release-id", "", "Restrict binding to this MusicBrainz release")
}

func (f *intentFlags) intent() (binding.Intent, error) {
	intent := binding.Intent{
		Artist:      strings.TrimSpace(f.artist),
		Title:       strings.TrimSpace(f.title),
		Album:       strings.TrimSpace(f.album),
		RecordingID: strings.TrimSpace(f.recordingID),
		ReleaseID:   strings.TrimSpace(f.releaseID),
	}
	if f.duration != "" {
		ms, err := parseDurationMS(f.duration)
		if err != nil {
			return intent, err
		}
		intent.DurationMS = ms
	}
	return intent, nil
}

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	enqueueCmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Bind and enqueue tracks, albums, or URLs",
	}

	enqueueCmd.AddCommand(newEnqueueSearchCommand(ctx))
	enqueueCmd.AddCommand(newEnqueueAlbumCommand(ctx))
	enqueueCmd.AddCommand(newEnqueueURLCommand(ctx))
	enqueueCmd.AddCommand(newEnqueueImportCommand(ctx))

	return enqueueCmd
}

func newEnqueueSearchCommand(ctx *commandContext) *cobra.Command {
	var common enqueueFlags
	var hints intentFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Bind an artist/title to a canonical release and enqueue it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := hints.intent()
			if err != nil {
				return err
			}
			opts, err := common.options(queue.OriginSearch)
			if err != nil {
				return err
			}
			return ctx.withComponents(cmd, func(_ *config.Config, _ *queue.Store, c *daemon.Components) error {
				res, err := c.Intake.EnqueueSearchIntent(cmd.Context(), intent, opts)
				if err != nil {
					return describeBindingError(cmd.ErrOrStderr(), err)
				}
				printEnqueueResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}

	hints.register(cmd)
	common.register(cmd)
	return cmd
}

func newEnqueueAlbumCommand(ctx *commandContext) *cobra.Command {
	var common enqueueFlags

	cmd := &cobra.Command{
		Use:   "album <release-group-id>",
		Short: "Enqueue every track of a release group's best release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := common.options(queue.OriginAlbum)
			if err != nil {
				return err
			}
			return ctx.withComponents(cmd, func(_ *config.Config, _ *queue.Store, c *daemon.Components) error {
				res, err := c.Intake.EnqueueAlbum(cmd.Context(), strings.TrimSpace(args[0]), opts)
				if err != nil {
					return describeBindingError(cmd.ErrOrStderr(), err)
				}
				out := cmd.OutOrStdout()
				exp := res.Expansion
				fmt.Fprintf(out, "Album: %s (release %s, %s)\n", exp.Album, exp.ReleaseID, exp.Bucket)
				rows := make([][]string, 0, len(res.Jobs))
				for _, job := range res.Jobs {
					pair := job.Job.Payload.Music().Pair
					rows = append(rows, []string{
						fmt.Sprintf("%d-%d", pair.DiscNumber, pair.TrackNumber),
						pair.Title,
						strconv.FormatInt(job.Job.ID, 10),
						enqueueState(job),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Track", "Title", "Job", "State"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "%d of %d tracks enqueued\n", res.Created, len(res.Jobs))
				return nil
			})
		},
	}

	common.register(cmd)
	return cmd
}

func newEnqueueURLCommand(ctx *commandContext) *cobra.Command {
	var common enqueueFlags
	var hints intentFlags
	var video bool
	var videoTitle string
	var container string
	var maxHeight int

	cmd := &cobra.Command{
		Use:   "url <url>",
		Short: "Enqueue a direct provider URL as video or as a bound music track",
		Long: "With --video the URL is downloaded as-is and keyed by its canonical form.\n" +
			"Otherwise --artist/--title bind the URL's track to a canonical release first.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])
			opts, err := common.options(queue.OriginDirect)
			if err != nil {
				return err
			}
			if !video && strings.TrimSpace(hints.title) == "" && strings.TrimSpace(hints.recordingID) == "" {
				return errors.New("music URLs need --title (or --recording-id); pass --video to download the URL as video")
			}
			return ctx.withComponents(cmd, func(_ *config.Config, _ *queue.Store, c *daemon.Components) error {
				if video {
					res, err := c.Intake.EnqueueVideoURL(cmd.Context(), raw, intake.VideoOptions{
						Options:   opts,
						Title:     strings.TrimSpace(videoTitle),
						Container: strings.ToLower(strings.TrimSpace(container)),
						MaxHeight: maxHeight,
					})
					if err != nil {
						return err
					}
					printEnqueueResult(cmd.OutOrStdout(), res)
					return nil
				}
				intent, err := hints.intent()
				if err != nil {
					return err
				}
				res, err := c.Intake.EnqueueMusicURL(cmd.Context(), raw, intent, opts)
				if err != nil {
					return describeBindingError(cmd.ErrOrStderr(), err)
				}
				printEnqueueResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}

	hints.register(cmd)
	common.register(cmd)
	cmd.Flags().BoolVar(&video, "video", false, "Download the URL as video without binding")
	cmd.Flags().StringVar(&videoTitle, "video-title", "", "Display title for a video job")
	cmd.Flags().StringVar(&container, "container", "", "Video container override (webm, mp4, mkv)")
	cmd.Flags().IntVar(&maxHeight, "max-height", 0, "Maximum video height in pixels (0 keeps best)")
	return cmd
}

type importFile struct {
	Tracks []binding.Intent `yaml:"tracks"`
}

func newEnqueueImportCommand(ctx *commandContext) *cobra.Command {
	var common enqueueFlags
	var batchID string

	cmd := &cobra.Command{
		Use:   "import <intents.yaml>",
		Short: "Bind and enqueue a YAML list of track intents as one batch",
		Long: "The file holds a `tracks:` list whose entries use the artist, title, album,\n" +
			"duration_ms, recording_id, and release_id keys. Binding failures are recorded\n" +
			"and do not stop the batch.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intents, err := readIntents(args[0])
			if err != nil {
				return err
			}
			opts, err := common.options(queue.OriginImport)
			if err != nil {
				return err
			}
			opts.BatchID = strings.TrimSpace(batchID)
			if opts.BatchID == "" {
				opts.BatchID = uuid.NewString()
			}
			return ctx.withComponents(cmd, func(_ *config.Config, _ *queue.Store, c *daemon.Components) error {
				rows := make([][]string, 0, len(intents))
				var created, failed int
				for _, intent := range intents {
					label := fmt.Sprintf("%s - %s", intent.Artist, intent.Title)
					res, err := c.Intake.EnqueueSearchIntent(cmd.Context(), intent, opts)
					if err != nil {
						failure, ok := binding.AsFailure(err)
						if !ok {
							return err
						}
						failed++
						rows = append(rows, []string{label, "-", "failed: " + string(failure.Reason)})
						continue
					}
					if res.Created {
						created++
					}
					rows = append(rows, []string{label, strconv.FormatInt(res.Job.ID, 10), enqueueState(res)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderTable(
					[]string{"Intent", "Job", "State"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "Batch %s: %d enqueued, %d failed binding, %d total\n", opts.BatchID, created, failed, len(intents))
				return nil
			})
		},
	}

	common.register(cmd)
	cmd.Flags().StringVar(&batchID, "batch", "", "Batch id recorded with binding failures (default: random)")
	return cmd
}

func readIntents(path string) ([]binding.Intent, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read intents: %w", err)
	}
	var file importFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse intents %s: %w", expanded, err)
	}
	if len(file.Tracks) == 0 {
		return nil, fmt.Errorf("intents %s: no tracks listed", expanded)
	}
	return file.Tracks, nil
}

func enqueueState(res *intake.Result) string {
	switch {
	case res.Created:
		return "queued"
	case res.Job.Status == queue.StatusCompleted:
		return "already completed"
	default:
		return "already " + string(res.Job.Status)
	}
}

func printEnqueueResult(w io.Writer, res *intake.Result) {
	if res.Created {
		fmt.Fprintf(w, "Enqueued job %d: %s\n", res.Job.ID, res.Job.Label())
	} else {
		fmt.Fprintf(w, "Job %d %s: %s\n", res.Job.ID, enqueueState(res), res.Job.Label())
	}
	fmt.Fprintf(w, "Key: %s\n", res.Job.CanonicalKey)
	if sel := res.Selection; sel != nil {
		pair := sel.Pair
		fmt.Fprintf(w, "Bound: %s (%s, %s, track %d-%d, score %.1f)\n",
			pair.Album, pair.ReleaseDate, sel.Bucket, pair.DiscNumber, pair.TrackNumber, sel.Score)
		if sel.RunnerUp != nil {
			fmt.Fprintf(w, "Runner-up: %s (score %.1f, %s)\n", sel.RunnerUp.ReleaseID, sel.RunnerUp.Score, sel.RunnerUp.Reason)
		}
	}
}

// describeBindingError prints the reason breakdown of a binding failure and
// returns err unchanged.
func describeBindingError(w io.Writer, err error) error {
	failure, ok := binding.AsFailure(err)
	if !ok {
		return err
	}
	fmt.Fprintf(w, "No canonical release: %s\n", failure.Reason)
	if len(failure.Reasons) > 1 {
		names := make([]string, 0, len(failure.Reasons))
		for _, r := range failure.Reasons {
			names = append(names, string(r))
		}
		fmt.Fprintf(w, "Observed: %s\n", strings.Join(names, ", "))
	}
	return err
}

// parseDurationMS accepts m:ss, h:mm:ss, Go durations, or bare milliseconds.
func parseDurationMS(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if strings.Contains(value, ":") {
		parts := strings.Split(value, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		total := 0
		for _, part := range parts {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid duration %q", value)
			}
			total = total*60 + n
		}
		return total * 1000, nil
	}
	if ms, err := strconv.Atoi(value); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		return ms, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return int(d / time.Millisecond), nil
}
