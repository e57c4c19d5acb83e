package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"image-resize-ai/internal/app"
	"image-resize-ai/internal/jobs"
)

// Poll flags
var (
	operationFlag    string
	cacheKeyFlag     string
	pollTimeoutFlag  time.Duration
	pollIntervalFlag time.Duration
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Check or wait on a submitted video job",
	Long: `Poll the provider for a job until it finishes or --timeout passes. With
--timeout 0 the provider is checked once. A job still running when the
timeout passes is reported with status "running" and is left untouched, so
it can be polled again later.`,
	Args: cobra.NoArgs,
	RunE: runPoll,
}

func init() {
	f := pollCmd.Flags()
	f.StringVar(&operationFlag, "operation", "", "Operation name returned by video")
	f.StringVar(&cacheKeyFlag, "cache-key", "", "Cache key returned by video")
	f.DurationVar(&pollTimeoutFlag, "timeout", 0, "Maximum wait (0 checks once)")
	f.DurationVar(&pollIntervalFlag, "interval", 0, "Status check interval (default POLL_INTERVAL)")
}

func runPoll(cmd *cobra.Command, _ []string) error {
	if operationFlag == "" && cacheKeyFlag == "" {
		return errors.New("--operation or --cache-key is required")
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Videos.Poll(cmd.Context(), jobs.PollRequest{
		OperationName: operationFlag,
		CacheKey:      cacheKeyFlag,
		Timeout:       pollTimeoutFlag,
		Interval:      pollIntervalFlag,
	})
	if err != nil {
		return err
	}

	payload := res.Payload()
	printJSON(os.Stdout, payload, prettyFlag)
	if !payload.Success {
		return errReported
	}
	return nil
}
