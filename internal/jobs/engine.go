// SPDX-License-Identifier: MIT

// Package jobs implements the download pipeline: acquisition of a remote
// file into a confined directory tree, atomic publication, and the
// best-effort post-processing chain for video payloads.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/geek-md/media-downloader/internal/bus"
	"github.com/geek-md/media-downloader/internal/config"
	"github.com/geek-md/media-downloader/internal/fsutil"
	"github.com/geek-md/media-downloader/internal/log"
	"github.com/geek-md/media-downloader/internal/metrics"
	"github.com/geek-md/media-downloader/internal/status"
)

// chunkSize bounds the streaming copy; the body is never buffered wholly in
// memory.
const chunkSize = 64 * 1024

// Engine drives one download job to completion or failure. Multiple jobs may
// run concurrently; they share only the status recorder and the bus.
type Engine struct {
	cfg    config.AppConfig
	client *http.Client
	bus    bus.Bus
	status StatusRecorder
	chain  *Chain
}

// NewEngine wires an Engine. The HTTP client carries no global timeout; the
// per-job acquisition deadline governs every transfer.
func NewEngine(cfg config.AppConfig, b bus.Bus, st StatusRecorder, chain *Chain) *Engine {
	return &Engine{
		cfg:    cfg,
		client: &http.Client{},
		bus:    b,
		status: st,
		chain:  chain,
	}
}

// Run executes the job described by req. It returns the terminal Result and
// guarantees exactly one terminal signal (job-completed, job-interrupted or
// download-failed) is published.
func (e *Engine) Run(ctx context.Context, req Request) Result {
	logger := log.WithComponentFromContext(ctx, "engine")
	start := time.Now()

	e.status.StartOperation(status.OpDownloading)
	defer e.status.EndOperation(status.OpDownloading)

	timeout := req.TimeoutSec
	if timeout <= 0 {
		timeout = e.cfg.DownloadTimeout
	}
	acqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	finalPath, err := e.acquire(acqCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn().
				Str(log.FieldEvent, "download.interrupted").
				Str(log.FieldURL, req.URL).
				Int("timeout_sec", timeout).
				Msg("acquisition deadline exceeded")
			e.publish(bus.TopicJobInterrupted, bus.JobInterrupted{URL: req.URL, Path: finalPath})
			metrics.RecordJob("interrupted", time.Since(start).Seconds())
			return Result{Err: err, FinalPath: finalPath}
		}
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "download.failed").
			Str(log.FieldURL, req.URL).
			Msg("download failed")
		e.publish(bus.TopicDownloadFailed, bus.DownloadFailed{URL: req.URL, Error: err.Error()})
		metrics.RecordJob("failed", time.Since(start).Seconds())
		return Result{Err: err, FinalPath: finalPath}
	}

	logger.Info().
		Str(log.FieldEvent, "download.published").
		Str(log.FieldURL, req.URL).
		Str(log.FieldFinalPath, finalPath).
		Msg("download completed")
	e.publish(bus.TopicDownloadCompleted, bus.DownloadCompleted{URL: req.URL, Path: finalPath})

	// Post-processing runs on the published file under the parent context;
	// the acquisition deadline does not cover it.
	resized := e.chain.Process(ctx, finalPath, e.resizeTarget(req))

	e.publish(bus.TopicJobCompleted, bus.JobCompleted{URL: req.URL, Path: finalPath, Resized: resized})
	metrics.RecordJob("completed", time.Since(start).Seconds())

	return Result{Success: true, FinalPath: finalPath, Resized: resized}
}

func (e *Engine) resizeTarget(req Request) ResizeSpec {
	if !req.ResizeEnabled {
		return ResizeSpec{}
	}
	w, h := req.ResizeWidth, req.ResizeHeight
	if w <= 0 {
		w = e.cfg.ResizeWidth
	}
	if h <= 0 {
		h = e.cfg.ResizeHeight
	}
	return ResizeSpec{Enabled: true, Width: w, Height: h}
}

// acquire streams the remote resource to the temporary file and atomically
// publishes it. On any failure the temporary file is removed; the returned
// path is the last computed final destination (may be empty before
// resolution).
func (e *Engine) acquire(ctx context.Context, req Request) (string, error) {
	logger := log.WithComponentFromContext(ctx, "engine")

	explicitName := req.Filename != ""
	name := req.Filename
	if !explicitName {
		name = fsutil.GuessNameFromURL(req.URL)
	}

	dest, err := resolveDestination(e.cfg.DataDir, req.Subdir, name)
	if err != nil {
		return "", err
	}

	dest.removeStaleTemp()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return dest.final, fmt.Errorf("build request: %w", err)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return dest.final, wrapDeadline(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return dest.final, &RemoteStatusError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	// A server-supplied name can change the destination mid-flight, but only
	// when the caller supplied none. The new name passes the same
	// sanitize-and-confine gate.
	if !explicitName {
		if suggested := contentName(resp.Header); suggested != "" {
			if err := dest.setName(suggested); err != nil {
				return dest.final, err
			}
			dest.removeStaleTemp()
			logger.Debug().
				Str(log.FieldEvent, "download.renamed").
				Str(log.FieldFinalPath, dest.final).
				Msg("destination renamed from response header")
		}
	}

	written, err := streamToFile(ctx, dest.tmp, resp.Body)
	metrics.AddDownloadBytes(written)
	if err != nil {
		_ = os.Remove(dest.tmp)
		return dest.final, wrapDeadline(ctx, err)
	}

	// The overwrite decision is deferred until the destination is settled.
	if _, statErr := os.Stat(dest.final); statErr == nil {
		if !e.overwrite(req) {
			_ = os.Remove(dest.tmp)
			return dest.final, &DestinationExistsError{Path: dest.final}
		}
	}

	// Atomic publish: a concurrent reader observes either the old file or
	// the complete new one, never a partial write.
	if err := os.Rename(dest.tmp, dest.final); err != nil {
		_ = os.Remove(dest.tmp)
		return dest.final, fmt.Errorf("publish download: %w", err)
	}

	return dest.final, nil
}

func (e *Engine) overwrite(req Request) bool {
	if req.Overwrite != nil {
		return *req.Overwrite
	}
	return e.cfg.Overwrite
}

func (e *Engine) publish(topic string, msg bus.Message) {
	// Signals must not be lost to an expired job deadline; give delivery its
	// own short grace window.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.bus.Publish(ctx, topic, msg); err != nil {
		lg := log.WithComponent("engine")
		lg.Warn().Err(err).Str("topic", topic).Msg("signal publish failed")
	}
}

// streamToFile copies body to path in bounded chunks and syncs before close.
func streamToFile(ctx context.Context, path string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, chunkSize)
	written, err := io.CopyBuffer(f, body, buf)
	if err != nil {
		_ = f.Close()
		return written, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return written, err
	}
	return written, f.Close()
}

// contentName extracts a file name suggestion from the Content-Disposition
// header, if any.
func contentName(h http.Header) string {
	cd := h.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// wrapDeadline surfaces context deadline expiry over transport errors so the
// interruption path can be distinguished from ordinary failure.
func wrapDeadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}
