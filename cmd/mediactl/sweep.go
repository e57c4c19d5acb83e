package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"image-resize-ai/internal/app"
)

var ttlFlag time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove cache entries older than the TTL",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().DurationVar(&ttlFlag, "ttl", 0, "Entry age to remove (default CACHE_TTL)")
}

type sweepOutput struct {
	Success    bool   `json:"success"`
	Scanned    int    `json:"scanned"`
	Removed    int    `json:"removed"`
	Orphans    int    `json:"orphans"`
	FreedBytes int64  `json:"freedBytes"`
	PrunedDirs int    `json:"prunedDirs"`
	Duration   string `json:"duration"`
}

func runSweep(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	ttl := ttlFlag
	if ttl <= 0 {
		ttl = a.Config.CacheTTL
	}
	if ttl <= 0 {
		return errors.New("no TTL: pass --ttl or set CACHE_TTL")
	}

	stats, err := app.NewSweeper(a.Cache, a.DB, ttl, a.Config.SweepInterval).Sweep(cmd.Context())
	if err != nil {
		return err
	}
	printJSON(os.Stdout, sweepOutput{
		Success:    true,
		Scanned:    stats.Scanned,
		Removed:    stats.Removed,
		Orphans:    stats.Orphans,
		FreedBytes: stats.FreedBytes,
		PrunedDirs: stats.PrunedDirs,
		Duration:   stats.Duration.String(),
	}, prettyFlag)
	return nil
}
