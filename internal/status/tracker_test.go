// SPDX-License-Identifier: MIT

package status

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/geek-md/media-downloader/internal/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerStartEnd(t *testing.T) {
	tr := NewTracker()

	snap := tr.Snapshot()
	assert.Equal(t, "idle", snap.State)
	assert.Equal(t, OutcomeNone, snap.LastOutcome)
	assert.Empty(t, snap.Active)

	tr.StartOperation(OpDownloading)
	snap = tr.Snapshot()
	assert.Equal(t, "working", snap.State)
	assert.Equal(t, OpDownloading, snap.Current)
	assert.Equal(t, []string{OpDownloading}, snap.Active)

	tr.StartOperation(OpResizing)
	snap = tr.Snapshot()
	assert.Equal(t, OpResizing, snap.Current)
	assert.Len(t, snap.Active, 2)

	tr.EndOperation(OpResizing)
	snap = tr.Snapshot()
	assert.Equal(t, "working", snap.State)
	assert.Equal(t, OpDownloading, snap.Current)

	tr.EndOperation(OpDownloading)
	snap = tr.Snapshot()
	assert.Equal(t, "idle", snap.State)
	assert.Empty(t, snap.Current)
	assert.Empty(t, snap.Active)
}

func TestTrackerEndIdempotent(t *testing.T) {
	tr := NewTracker()

	tr.EndOperation(OpDownloading) // never started
	snap := tr.Snapshot()
	assert.Equal(t, "idle", snap.State)

	tr.StartOperation(OpDownloading)
	tr.EndOperation(OpDownloading)
	tr.EndOperation(OpDownloading) // double end
	snap = tr.Snapshot()
	assert.Equal(t, "idle", snap.State)
	assert.Empty(t, snap.Active)
}

func TestTrackerStartIsSetMembership(t *testing.T) {
	tr := NewTracker()

	tr.StartOperation(OpDownloading)
	tr.StartOperation(OpDownloading)
	tr.EndOperation(OpDownloading)

	snap := tr.Snapshot()
	assert.Equal(t, "idle", snap.State, "single end must clear a doubly-started name")
}

func TestTrackerRecordOutcomeLastWriteWins(t *testing.T) {
	tr := NewTracker()

	tr.RecordOutcome(OutcomeCompleted)
	assert.Equal(t, OutcomeCompleted, tr.Snapshot().LastOutcome)

	tr.RecordOutcome(OutcomeInterrupted)
	assert.Equal(t, OutcomeInterrupted, tr.Snapshot().LastOutcome)

	// Outcome is independent of the active set.
	tr.StartOperation(OpDownloading)
	assert.Equal(t, OutcomeInterrupted, tr.Snapshot().LastOutcome)
}

func TestTrackerConcurrentStartEnd(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	names := []string{OpDownloading, OpResizing, OpFileDeleting, OpDirDeleting}
	for i := 0; i < 50; i++ {
		for _, name := range names {
			wg.Add(1)
			go func(n string) {
				defer wg.Done()
				tr.StartOperation(n)
				tr.EndOperation(n)
			}(name)
		}
	}
	wg.Wait()

	snap := tr.Snapshot()
	assert.Equal(t, "idle", snap.State)
	assert.Empty(t, snap.Active)
}

func TestListenRecordsTerminalOutcomes(t *testing.T) {
	b := bus.NewMemoryBus()
	tr := NewTracker()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Listen(ctx, b, tr) }()

	// Give the listener time to subscribe.
	require.Eventually(t, func() bool {
		err := b.Publish(context.Background(), bus.TopicJobCompleted, bus.JobCompleted{Path: "/media/a.mp4"})
		if err != nil {
			return false
		}
		return tr.Snapshot().LastOutcome == OutcomeCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Publish(context.Background(), bus.TopicJobInterrupted, bus.JobInterrupted{URL: "https://example.com/v.mp4"}))
	require.Eventually(t, func() bool {
		return tr.Snapshot().LastOutcome == OutcomeInterrupted
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
