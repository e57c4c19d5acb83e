package main

import (
	"github.com/spf13/cobra"

	"image-resize-ai/internal/app"
	"image-resize-ai/internal/startup"
)

func openApp(cmd *cobra.Command, opts app.Options) (*app.App, error) {
	cfg, err := startup.LoadToolConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, opts)
}
