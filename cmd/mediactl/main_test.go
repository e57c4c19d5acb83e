package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"image-resize-ai/internal/engine"
	"image-resize-ai/internal/jobs"
	"image-resize-ai/internal/mediaerr"
)

// =============================================================================
// Fake submitter
// =============================================================================

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []jobs.SubmitRequest
	waited   int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	results  map[string]jobs.Result
	errs     map[string]error
}

func (f *fakeSubmitter) do(req jobs.SubmitRequest) (jobs.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.errs[req.Asset]; err != nil {
		return jobs.Result{}, err
	}
	if res, ok := f.results[req.Asset]; ok {
		return res, nil
	}
	return jobs.Result{Outcome: jobs.OutcomeStillRunning, OperationName: "operations/" + req.Asset}, nil
}

func (f *fakeSubmitter) Submit(_ context.Context, req jobs.SubmitRequest) (jobs.Result, error) {
	return f.do(req)
}

func (f *fakeSubmitter) SubmitAndWait(_ context.Context, req jobs.SubmitRequest, _, _ time.Duration) (jobs.Result, error) {
	f.mu.Lock()
	f.waited++
	f.mu.Unlock()
	return f.do(req)
}

// =============================================================================
// Batch Tests
// =============================================================================

func TestRunVideoBatchKeepsOrderAndSplitsFailures(t *testing.T) {
	svc := &fakeSubmitter{
		results: map[string]jobs.Result{
			"b.jpg": {
				Outcome:   jobs.OutcomeCompleted,
				FromCache: true,
				CacheKey:  "kb",
				Video:     &engine.Result{URL: "/cache/video/b.jpg/kb.mp4", Path: "/c/kb.mp4"},
			},
			"d.jpg": {Outcome: jobs.OutcomeFailed, Error: "blocked"},
		},
		errs: map[string]error{
			"c.jpg": mediaerr.New(mediaerr.ErrAssetNotFound, "video", "source asset not found: c.jpg", nil),
		},
	}
	assets := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}
	base := jobs.SubmitRequest{Prompt: "spin", Silent: true}

	entries := runVideoBatch(context.Background(), svc, assets, base, batchOptions{Workers: 2})

	if len(entries) != len(assets) {
		t.Fatalf("got %d entries, want %d", len(entries), len(assets))
	}
	for i, e := range entries {
		if e.ImagePath != assets[i] {
			t.Errorf("entries[%d].ImagePath = %q, want %q", i, e.ImagePath, assets[i])
		}
	}
	for _, req := range svc.requests {
		if req.Prompt != "spin" || !req.Silent {
			t.Errorf("request lost base fields: %+v", req)
		}
	}

	r := report(entries)
	if r.Success || r.Total != 4 || r.Succeeded != 2 || r.Failed != 2 {
		t.Errorf("report = success %v total %d succeeded %d failed %d", r.Success, r.Total, r.Succeeded, r.Failed)
	}
	if r.Errors[0].ImagePath != "c.jpg" || r.Errors[0].Error != "source asset not found: c.jpg" {
		t.Errorf("first error = %+v", r.Errors[0])
	}
	if r.Results[1].VideoURL != "/cache/video/b.jpg/kb.mp4" || !r.Results[1].FromCache {
		t.Errorf("cached result = %+v", r.Results[1])
	}
}

func TestRunVideoBatchLimitsConcurrency(t *testing.T) {
	svc := &fakeSubmitter{}
	assets := []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg"}

	runVideoBatch(context.Background(), svc, assets, jobs.SubmitRequest{Prompt: "p"}, batchOptions{Workers: 2})

	if got := svc.maxSeen.Load(); got > 2 {
		t.Errorf("max concurrent submissions = %d, want <= 2", got)
	}
	if len(svc.requests) != len(assets) {
		t.Errorf("submitted %d, want %d", len(svc.requests), len(assets))
	}
}

func TestRunVideoBatchPoll(t *testing.T) {
	svc := &fakeSubmitter{}
	runVideoBatch(context.Background(), svc, []string{"a.jpg", "b.jpg"}, jobs.SubmitRequest{Prompt: "p"}, batchOptions{Poll: true, Workers: 1})

	if svc.waited != 2 {
		t.Errorf("SubmitAndWait called %d times, want 2", svc.waited)
	}
}

func TestReportAllSucceeded(t *testing.T) {
	r := report([]batchEntry{
		{ImagePath: "a.jpg", Payload: jobs.Payload{Success: true, Status: "running"}},
	})
	if !r.Success || r.Failed != 0 {
		t.Errorf("report = %+v", r)
	}

	var buf bytes.Buffer
	printJSON(&buf, r, false)
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if errs, ok := decoded["errors"].([]interface{}); !ok || len(errs) != 0 {
		t.Errorf("errors = %v, want empty array", decoded["errors"])
	}
	results := decoded["results"].([]interface{})
	first := results[0].(map[string]interface{})
	if first["imagePath"] != "a.jpg" || first["status"] != "running" {
		t.Errorf("embedded payload not flattened: %v", first)
	}
}

// =============================================================================
// Transform Request Tests
// =============================================================================

func TestTransformRequest(t *testing.T) {
	tests := []struct {
		name      string
		asset     string
		params    []string
		token     string
		wantPath  string
		wantQuery url.Values
		wantErr   bool
	}{
		{
			name:      "params",
			asset:     "catalog/shoe.jpg",
			params:    []string{"width=400", "format=webp", "prompt=make it red"},
			wantPath:  "catalog/shoe.jpg",
			wantQuery: url.Values{"width": {"400"}, "format": {"webp"}, "prompt": {"make it red"}},
		},
		{
			name:      "no params",
			asset:     "a.png",
			wantPath:  "a.png",
			wantQuery: url.Values{},
		},
		{
			name:      "token",
			asset:     "/a.png",
			token:     "d2lkdGg9MTAw.sig",
			wantPath:  "t/d2lkdGg9MTAw.sig/a.png",
			wantQuery: url.Values{},
		},
		{name: "token and params", asset: "a.png", token: "x", params: []string{"w=1"}, wantErr: true},
		{name: "missing equals", asset: "a.png", params: []string{"width"}, wantErr: true},
		{name: "empty key", asset: "a.png", params: []string{"=3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, query, err := transformRequest(tt.asset, tt.params, tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("transformRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
			got, err := url.ParseQuery(query)
			if err != nil {
				t.Fatal(err)
			}
			if got.Encode() != tt.wantQuery.Encode() {
				t.Errorf("query = %q, want %q", query, tt.wantQuery.Encode())
			}
		})
	}
}

// =============================================================================
// Output Tests
// =============================================================================

func TestPrintJSON(t *testing.T) {
	v := failure(mediaerr.New(mediaerr.ErrInvalidParams, "video", "prompt is required", nil))

	var compact, pretty bytes.Buffer
	printJSON(&compact, v, false)
	printJSON(&pretty, v, true)

	if got := strings.TrimSpace(compact.String()); got != `{"success":false,"error":"prompt is required"}` {
		t.Errorf("compact = %s", got)
	}
	if !strings.Contains(pretty.String(), "\n  \"success\": false") {
		t.Errorf("pretty output not indented: %s", pretty.String())
	}
}

func TestFailureUntypedError(t *testing.T) {
	if got := failure(errors.New("boom")); got.Success || got.Error != "boom" {
		t.Errorf("failure() = %+v", got)
	}
}

func TestCommandTree(t *testing.T) {
	want := map[string][]string{
		"video":     {"image", "prompt", "second-image", "aspect-ratio", "silent-video", "auto-reference", "poll", "retry-failed", "workers"},
		"poll":      {"operation", "cache-key", "timeout", "interval"},
		"transform": {"param", "token"},
		"sweep":     {"ttl"},
	}

	for name, flags := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
			continue
		}
		for _, f := range flags {
			if cmd.Flags().Lookup(f) == nil {
				t.Errorf("%s: missing flag --%s", name, f)
			}
		}
	}

	if f := videoCmd.Flags().Lookup("aspect-ratio"); f == nil || f.DefValue != "16:9" {
		t.Errorf("aspect-ratio default = %v", f)
	}
}
