package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"image-resize-ai/internal/app"
	"image-resize-ai/internal/jobs"
	"image-resize-ai/internal/workers"
)

// Video flags
var (
	imagesFlag        []string
	promptFlag        string
	secondImageFlag   string
	aspectRatioFlag   string
	silentVideoFlag   bool
	autoReferenceFlag bool
	pollFlag          bool
	retryFailedFlag   bool
	videoTimeoutFlag  time.Duration
	videoIntervalFlag time.Duration
	workersFlag       int
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Generate a video from one or more source images",
	Long: `Submit one video job per --image. Without --poll the command returns as
soon as each job is submitted (status "running" with an operation name to
poll) or found in the cache. With --poll it waits for each video.

A single image prints that image's result; several images print an
aggregate with total, succeeded and failed counts. The exit status is 1
when any image fails.`,
	Args: cobra.NoArgs,
	RunE: runVideo,
}

func init() {
	f := videoCmd.Flags()
	f.StringArrayVarP(&imagesFlag, "image", "i", nil, "Source image path, relative to MEDIA_DIR (repeatable)")
	f.StringVarP(&promptFlag, "prompt", "p", "", "Video prompt")
	f.StringVar(&secondImageFlag, "second-image", "", "Optional second reference image")
	f.StringVar(&aspectRatioFlag, "aspect-ratio", jobs.DefaultAspectRatio, "Video aspect ratio, e.g. 16:9 or 9:16")
	f.BoolVar(&silentVideoFlag, "silent-video", false, "Generate without audio")
	f.BoolVar(&autoReferenceFlag, "auto-reference", false, "Rewrite image names in the prompt to 'the first image' / 'the second image'")
	f.BoolVar(&pollFlag, "poll", false, "Wait for each video to finish")
	f.BoolVar(&retryFailedFlag, "retry-failed", false, "Resubmit jobs whose last attempt failed")
	f.DurationVar(&videoTimeoutFlag, "timeout", 0, "Maximum wait per video with --poll (default POLL_TIMEOUT)")
	f.DurationVar(&videoIntervalFlag, "interval", 0, "Status check interval with --poll (default POLL_INTERVAL)")
	f.IntVar(&workersFlag, "workers", 0, "Images processed concurrently (default scales with CPUs)")
	_ = videoCmd.MarkFlagRequired("image")
}

func runVideo(cmd *cobra.Command, _ []string) error {
	if len(imagesFlag) == 0 {
		return errors.New("at least one --image is required")
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Provider {
		return errors.New("video generation is not configured: set GEMINI_API_KEY")
	}

	base := jobs.SubmitRequest{
		SecondAsset:   secondImageFlag,
		Prompt:        promptFlag,
		AspectRatio:   aspectRatioFlag,
		Silent:        silentVideoFlag,
		AutoReference: autoReferenceFlag,
		Resubmit:      retryFailedFlag,
	}
	opts := batchOptions{
		Poll:     pollFlag,
		Timeout:  videoTimeoutFlag,
		Interval: videoIntervalFlag,
		Workers:  workersFlag,
	}
	if opts.Workers <= 0 {
		opts.Workers = workers.ForIO(len(imagesFlag))
	}

	entries := runVideoBatch(cmd.Context(), a.Videos, imagesFlag, base, opts)
	return writeVideoOutput(entries)
}

// writeVideoOutput prints the single entry or the aggregate and turns any
// failure into the exit status.
func writeVideoOutput(entries []batchEntry) error {
	if len(entries) == 1 {
		printJSON(os.Stdout, entries[0], prettyFlag)
		if !entries[0].Success {
			return errReported
		}
		return nil
	}

	r := report(entries)
	printJSON(os.Stdout, r, prettyFlag)
	if !r.Success {
		return errReported
	}
	return nil
}
