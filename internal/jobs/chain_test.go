// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/geek-md/media-downloader/internal/bus"
	"github.com/geek-md/media-downloader/internal/ffmpeg"
	"github.com/geek-md/media-downloader/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunVideoFullChain(t *testing.T) {
	rig := newTestRig(t, nil)
	srv := serveBytes(t, []byte("video payload"), nil)

	res := rig.engine.Run(context.Background(), Request{
		URL:           srv.URL + "/clip.mp4",
		ResizeEnabled: true,
		ResizeWidth:   640,
		ResizeHeight:  360,
	})
	require.NoError(t, res.Err)
	require.True(t, res.Success)
	assert.True(t, res.Resized)

	ops := rig.transformer.recorded()
	assert.Equal(t, []string{"normalize_aspect", "extract_frame", "attach_image", "scale_exact"}, ops)

	rig.waitSignal(t, bus.TopicAspectNormalized)
	rig.waitSignal(t, bus.TopicThumbnailEmbedded)
	msg := rig.waitSignal(t, bus.TopicResizeCompleted)
	rc, ok := msg.(bus.ResizeCompleted)
	require.True(t, ok)
	assert.Equal(t, 640, rc.Width)
	assert.Equal(t, 360, rc.Height)

	jc := rig.waitSignal(t, bus.TopicJobCompleted).(bus.JobCompleted)
	assert.True(t, jc.Resized)

	// The extracted thumbnail sibling must be cleaned up.
	assert.NoFileExists(t, filepath.Join(rig.cfg.DataDir, "clip.jpg"))

	// The final file reflects the last successful in-place transform.
	data, err := os.ReadFile(res.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, "transformed:scale_exact", string(data))
}

func TestRunVideoResizeShortCircuit(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.prober.dims = ffmpeg.Dimensions{Width: 640, Height: 360}
	srv := serveBytes(t, []byte("video payload"), nil)

	res := rig.engine.Run(context.Background(), Request{
		URL:           srv.URL + "/clip.mp4",
		ResizeEnabled: true,
		ResizeWidth:   640,
		ResizeHeight:  360,
	})
	require.NoError(t, res.Err)
	assert.True(t, res.Resized)

	rig.waitSignal(t, bus.TopicResizeCompleted)
	jc := rig.waitSignal(t, bus.TopicJobCompleted).(bus.JobCompleted)
	assert.True(t, jc.Resized)

	assert.NotContains(t, rig.transformer.recorded(), "scale_exact", "matching dimensions must not re-encode")
}

func TestRunVideoResizeFailureNonFatal(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.transformer.fail["scale_exact"] = true
	srv := serveBytes(t, []byte("video payload"), nil)

	res := rig.engine.Run(context.Background(), Request{
		URL:           srv.URL + "/clip.mp4",
		ResizeEnabled: true,
	})
	require.NoError(t, res.Err, "resize failure must not fail the job")
	require.True(t, res.Success)
	assert.False(t, res.Resized)

	rig.waitSignal(t, bus.TopicResizeFailed)
	jc := rig.waitSignal(t, bus.TopicJobCompleted).(bus.JobCompleted)
	assert.False(t, jc.Resized)
	assert.Zero(t, rig.signals.count(bus.TopicResizeCompleted))
}

func TestRunVideoProbeFailureSkipsNormalize(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.prober.ok = false
	srv := serveBytes(t, []byte("video payload"), nil)

	res := rig.engine.Run(context.Background(), Request{URL: srv.URL + "/clip.mkv"})
	require.NoError(t, res.Err)
	require.True(t, res.Success)

	assert.NotContains(t, rig.transformer.recorded(), "normalize_aspect")
	// Thumbnail embedding is independent of the probe outcome.
	assert.Contains(t, rig.transformer.recorded(), "extract_frame")
	assert.Zero(t, rig.signals.count(bus.TopicAspectNormalized))

	rig.waitSignal(t, bus.TopicJobCompleted)
}

func TestRunVideoCosmeticFailuresNonFatal(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.transformer.fail["normalize_aspect"] = true
	rig.transformer.fail["extract_frame"] = true
	srv := serveBytes(t, []byte("video payload"), nil)

	res := rig.engine.Run(context.Background(), Request{URL: srv.URL + "/clip.mp4"})
	require.NoError(t, res.Err)
	require.True(t, res.Success)

	// No step applied, so the published payload is untouched.
	data, err := os.ReadFile(res.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, "video payload", string(data))

	assert.Zero(t, rig.signals.count(bus.TopicAspectNormalized))
	assert.Zero(t, rig.signals.count(bus.TopicThumbnailEmbedded))
	rig.waitSignal(t, bus.TopicJobCompleted)

	// Failed steps leave no temporary siblings behind.
	entries, err := os.ReadDir(rig.cfg.DataDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "clip.mp4", entries[0].Name())
}

func TestChainResizeBracketsStatus(t *testing.T) {
	b := bus.NewMemoryBus()
	tracker := status.NewTracker()
	prober := &fakeProber{dims: ffmpeg.Dimensions{Width: 1920, Height: 1080}, ok: true}

	var sawResizing bool
	transformer := &probeStatusTransformer{tracker: tracker, saw: &sawResizing}
	chain := NewChain(prober, transformer, b, tracker)

	dir := t.TempDir()
	path := filepath.Join(dir, "v.mp4")
	require.NoError(t, os.WriteFile(path, []byte("v"), 0o644))

	chain.Process(context.Background(), path, ResizeSpec{Enabled: true, Width: 640, Height: 360})

	assert.True(t, sawResizing, "resizing must be active while the re-encode runs")
	assert.Equal(t, "idle", tracker.Snapshot().State)
}

// probeStatusTransformer inspects tracker state during the resize op.
type probeStatusTransformer struct {
	tracker *status.Tracker
	saw     *bool
}

func (p *probeStatusTransformer) Run(_ context.Context, op ffmpeg.Op) error {
	if op.Name == "scale_exact" {
		for _, n := range p.tracker.Snapshot().Active {
			if n == status.OpResizing {
				*p.saw = true
			}
		}
	}
	return os.WriteFile(op.Output, []byte("t"), 0o644)
}

func TestSibling(t *testing.T) {
	assert.Equal(t, "/media/v.normalized.mp4", sibling("/media/v.mp4", "normalized"))
	assert.Equal(t, "/media/v.resized.mkv", sibling("/media/v.mkv", "resized"))
}
