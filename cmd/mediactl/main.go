package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/mediaerr"
	"image-resize-ai/internal/startup"
)

// errReported means the command already printed its failure as JSON.
var errReported = errors.New("failure reported")

// Global flags
var (
	verboseFlag bool
	prettyFlag  bool
	configFlag  string
)

// rootCmd is the main Cobra command for mediactl.
var rootCmd = &cobra.Command{
	Use:   "mediactl",
	Short: "Transform images and generate videos against the image-resize-ai cache",
	Long: `mediactl runs the same transform engine and video job service as the
image-resize-ai server, against the same cache, database and locks. It reads
the server's configuration (.env, CONFIG_FILE, environment) and prints one
JSON object per invocation.

Examples:
  mediactl transform catalog/shoe.jpg --param width=400 --param format=webp
  mediactl video -i catalog/shoe.jpg -p "the image rotates slowly" --poll
  mediactl video -i a.jpg -i b.jpg -p "zoom out" --silent-video
  mediactl poll --operation operations/abc --cache-key 3f2a...
  mediactl sweep --ttl 720h`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetOutput(os.Stderr)
		if verboseFlag {
			logging.SetLevel(logging.LevelDebug)
		} else if !logging.IsDebugEnabled() {
			logging.SetLevel(logging.LevelWarn)
		}
		if configFlag != "" {
			if err := os.Setenv(startup.ConfigFileEnv, configFlag); err != nil {
				logging.Warn("Failed to set %s: %v", startup.ConfigFileEnv, err)
			}
		}
		if !cmd.Flags().Changed("pretty") {
			prettyFlag = term.IsTerminal(int(os.Stdout.Fd()))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log progress to stderr")
	rootCmd.PersistentFlags().BoolVar(&prettyFlag, "pretty", false, "Indent JSON output (default when stdout is a terminal)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "YAML configuration file (overrides CONFIG_FILE)")

	rootCmd.AddCommand(videoCmd, pollCmd, transformCmd, sweepCmd)
}

func main() {
	// Interrupting a poll leaves the job running on the provider.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			printJSON(os.Stdout, failure(err), prettyFlag)
		}
		os.Exit(1)
	}
}

type failureOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func failure(err error) failureOutput {
	return failureOutput{Error: mediaerr.Message(err)}
}

func printJSON(w io.Writer, v interface{}, pretty bool) {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode output: %v\n", err)
	}
}
