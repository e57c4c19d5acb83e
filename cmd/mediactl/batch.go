package main

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"image-resize-ai/internal/jobs"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/mediaerr"
)

// videoSubmitter is the part of *jobs.Service the video command drives.
type videoSubmitter interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (jobs.Result, error)
	SubmitAndWait(ctx context.Context, req jobs.SubmitRequest, timeout, interval time.Duration) (jobs.Result, error)
}

type batchOptions struct {
	Poll     bool
	Timeout  time.Duration
	Interval time.Duration
	Workers  int
}

// batchEntry is one asset's outcome.
type batchEntry struct {
	ImagePath string `json:"imagePath"`
	jobs.Payload
}

// batchReport is printed when more than one asset is given.
type batchReport struct {
	Success   bool         `json:"success"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []batchEntry `json:"results"`
	Errors    []batchEntry `json:"errors"`
}

// runVideoBatch submits one job per asset, at most opts.Workers at a time.
// Entries keep the order of assets.
func runVideoBatch(ctx context.Context, svc videoSubmitter, assets []string, base jobs.SubmitRequest, opts batchOptions) []batchEntry {
	entries := make([]batchEntry, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i, asset := range assets {
		g.Go(func() error {
			req := base
			req.Asset = asset

			var (
				res jobs.Result
				err error
			)
			if opts.Poll {
				res, err = svc.SubmitAndWait(gctx, req, opts.Timeout, opts.Interval)
			} else {
				res, err = svc.Submit(gctx, req)
			}

			if err != nil {
				logging.Debug("Video for %s failed: %v", asset, err)
				entries[i] = batchEntry{ImagePath: asset, Payload: jobs.Payload{Status: "error", Error: mediaerr.Message(err)}}
				return nil
			}
			entries[i] = batchEntry{ImagePath: asset, Payload: res.Payload()}
			return nil
		})
	}
	// Workers record failures in their entry and never return an error.
	_ = g.Wait()

	return entries
}

// report aggregates entries. A stored job failure counts as failed.
func report(entries []batchEntry) batchReport {
	r := batchReport{
		Total:   len(entries),
		Results: []batchEntry{},
		Errors:  []batchEntry{},
	}
	for _, e := range entries {
		if e.Success {
			r.Results = append(r.Results, e)
		} else {
			r.Errors = append(r.Errors, e)
		}
	}
	r.Succeeded = len(r.Results)
	r.Failed = len(r.Errors)
	r.Success = r.Failed == 0
	return r
}
