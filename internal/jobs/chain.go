// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/geek-md/media-downloader/internal/bus"
	"github.com/geek-md/media-downloader/internal/ffmpeg"
	"github.com/geek-md/media-downloader/internal/log"
	"github.com/geek-md/media-downloader/internal/metrics"
	"github.com/geek-md/media-downloader/internal/status"
)

// videoExts is the extension set that triggers post-processing.
var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
	".m4v":  true,
}

// ResizeSpec carries the caller's resize request for one job.
type ResizeSpec struct {
	Enabled bool
	Width   int
	Height  int
}

// Chain runs the best-effort post-processing steps over a published file.
// Each step is independent: failure is caught at the step boundary, logged,
// and never propagates past the chain.
type Chain struct {
	prober      Prober
	transformer Transformer
	bus         bus.Bus
	status      StatusRecorder
}

// NewChain wires the post-processing chain.
func NewChain(p Prober, t Transformer, b bus.Bus, st StatusRecorder) *Chain {
	return &Chain{prober: p, transformer: t, bus: b, status: st}
}

// Process applies the chain to path. It returns whether the requested resize
// target was achieved. Non-video files are a no-op.
func (c *Chain) Process(ctx context.Context, path string, resize ResizeSpec) bool {
	if !videoExts[strings.ToLower(filepath.Ext(path))] {
		return false
	}

	logger := log.WithComponentFromContext(ctx, "chain")

	out := c.normalizeAspect(ctx, path)
	metrics.RecordTransformStep("normalize_aspect", out.String())
	if out == StepApplied {
		c.publish(ctx, bus.TopicAspectNormalized, bus.AspectNormalized{Path: path})
	}

	out = c.embedThumbnail(ctx, path)
	metrics.RecordTransformStep("embed_thumbnail", out.String())
	if out == StepApplied {
		c.publish(ctx, bus.TopicThumbnailEmbedded, bus.ThumbnailEmbedded{Path: path})
	}

	if !resize.Enabled {
		return false
	}

	out = c.resize(ctx, path, resize)
	metrics.RecordTransformStep("resize", out.String())
	switch out {
	case StepApplied, StepSkipped:
		// Skipped means the file already matches the target: the target
		// state is achieved, so the completion signal still fires.
		c.publish(ctx, bus.TopicResizeCompleted, bus.ResizeCompleted{Path: path, Width: resize.Width, Height: resize.Height})
		return true
	default:
		c.publish(ctx, bus.TopicResizeFailed, bus.ResizeFailed{Path: path})
		logger.Warn().
			Str(log.FieldEvent, "chain.resize_failed").
			Str(log.FieldPath, path).
			Msg("resize failed, downloaded artifact remains valid")
		return false
	}
}

// normalizeAspect re-encodes the video with square pixels and an explicit
// display aspect ratio. Purely cosmetic: any failure is non-fatal.
func (c *Chain) normalizeAspect(ctx context.Context, path string) StepOutcome {
	logger := log.WithComponentFromContext(ctx, "chain")

	dims, ok := c.prober.Probe(ctx, path)
	if !ok {
		logger.Warn().
			Str(log.FieldEvent, "chain.normalize_skipped").
			Str(log.FieldPath, path).
			Msg("could not determine video dimensions")
		return StepSkipped
	}

	tmp := sibling(path, "normalized")
	if err := c.transformer.Run(ctx, ffmpeg.NormalizeAspect(path, tmp, dims)); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "chain.normalize_failed").
			Str(log.FieldPath, path).
			Msg("aspect normalization failed")
		_ = os.Remove(tmp)
		return StepFailed
	}
	if err := os.Rename(tmp, path); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "chain.normalize_failed").
			Str(log.FieldPath, path).
			Msg("aspect normalization replace failed")
		_ = os.Remove(tmp)
		return StepFailed
	}
	return StepApplied
}

// embedThumbnail extracts the first frame and muxes it back as an attached
// preview image, replacing any prior attached image.
func (c *Chain) embedThumbnail(ctx context.Context, path string) StepOutcome {
	logger := log.WithComponentFromContext(ctx, "chain")

	thumb := strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
	defer func() { _ = os.Remove(thumb) }()

	if err := c.transformer.Run(ctx, ffmpeg.ExtractFrame(path, thumb)); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "chain.thumbnail_failed").
			Str(log.FieldPath, path).
			Msg("thumbnail extraction failed")
		return StepFailed
	}

	tmp := sibling(path, "thumb")
	if err := c.transformer.Run(ctx, ffmpeg.AttachImage(path, thumb, tmp)); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "chain.thumbnail_failed").
			Str(log.FieldPath, path).
			Msg("thumbnail embedding failed")
		_ = os.Remove(tmp)
		return StepFailed
	}
	if err := os.Rename(tmp, path); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "chain.thumbnail_failed").
			Str(log.FieldPath, path).
			Msg("thumbnail replace failed")
		_ = os.Remove(tmp)
		return StepFailed
	}
	return StepApplied
}

// resize re-encodes to the exact requested size unless the file already
// matches it.
func (c *Chain) resize(ctx context.Context, path string, spec ResizeSpec) StepOutcome {
	logger := log.WithComponentFromContext(ctx, "chain")

	if dims, ok := c.prober.Probe(ctx, path); ok &&
		dims.Width == spec.Width && dims.Height == spec.Height {
		logger.Debug().
			Str(log.FieldEvent, "chain.resize_satisfied").
			Str(log.FieldPath, path).
			Int(log.FieldWidth, spec.Width).
			Int(log.FieldHeight, spec.Height).
			Msg("file already matches resize target")
		return StepSkipped
	}

	c.status.StartOperation(status.OpResizing)
	defer c.status.EndOperation(status.OpResizing)

	tmp := sibling(path, "resized")
	target := ffmpeg.Dimensions{Width: spec.Width, Height: spec.Height}
	if err := c.transformer.Run(ctx, ffmpeg.ScaleExact(path, tmp, target)); err != nil {
		_ = os.Remove(tmp)
		return StepFailed
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return StepFailed
	}
	return StepApplied
}

func (c *Chain) publish(ctx context.Context, topic string, msg bus.Message) {
	if err := c.bus.Publish(ctx, topic, msg); err != nil {
		lg := log.WithComponent("chain")
		lg.Warn().Err(err).Str("topic", topic).Msg("signal publish failed")
	}
}

// sibling builds the temporary sibling path for an in-place mutation:
// "video.mp4" with tag "resized" becomes "video.resized.mp4". Keeping the
// extension lets the transform tool infer the container format.
func sibling(path, tag string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + tag + ext
}
