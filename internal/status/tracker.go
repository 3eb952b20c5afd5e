// SPDX-License-Identifier: MIT

// Package status maintains a process-wide record of which named operations
// are currently in flight and the most recent terminal job outcome. It is
// safe for use from overlapping concurrent jobs.
package status

import (
	"sort"
	"sync"
	"time"

	"github.com/geek-md/media-downloader/internal/metrics"
)

// Outcome is the last terminal job state observed.
type Outcome string

const (
	OutcomeNone        Outcome = "none"
	OutcomeCompleted   Outcome = "completed"
	OutcomeInterrupted Outcome = "interrupted"
)

// Operation names tracked by the pipeline.
const (
	OpDownloading  = "downloading"
	OpResizing     = "resizing"
	OpFileDeleting = "file_deleting"
	OpDirDeleting  = "dir_deleting"
)

// Snapshot is a point-in-time copy of the tracker state for external
// observation.
type Snapshot struct {
	State       string    `json:"state"` // "idle" or "working"
	Current     string    `json:"current,omitempty"`
	Active      []string  `json:"active"`
	LastOutcome Outcome   `json:"last_outcome"`
	LastChanged time.Time `json:"last_changed"`
}

// Tracker aggregates operation activity. The active set only grows via
// StartOperation and only shrinks via a matching EndOperation; ending an
// absent name is a no-op so failure paths may both raise and clean up.
type Tracker struct {
	mu          sync.Mutex
	active      map[string]struct{}
	current     string
	lastOutcome Outcome
	lastChanged time.Time
	clock       func() time.Time
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active:      make(map[string]struct{}),
		lastOutcome: OutcomeNone,
		clock:       time.Now,
	}
}

// StartOperation adds name to the active set. Starting an already-active
// name keeps set semantics: membership, not a count.
func (t *Tracker) StartOperation(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[name]; !ok {
		t.active[name] = struct{}{}
		metrics.IncActiveOperation(name)
	}
	t.current = name
	t.lastChanged = t.clock()
}

// EndOperation removes name from the active set. Removing an absent name
// leaves the set unchanged and does not error.
func (t *Tracker) EndOperation(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[name]; !ok {
		return
	}
	delete(t.active, name)
	metrics.DecActiveOperation(name)
	if t.current == name {
		t.current = ""
		// Tie-break among the remaining members is arbitrary.
		for n := range t.active {
			t.current = n
			break
		}
	}
	t.lastChanged = t.clock()
}

// RecordOutcome stores the last terminal job outcome, last-write-wins. It is
// independent of the active-set machinery.
func (t *Tracker) RecordOutcome(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastOutcome = o
	t.lastChanged = t.clock()
}

// Snapshot returns a copy of the current state. The Active slice is sorted
// for stable output.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := make([]string, 0, len(t.active))
	for n := range t.active {
		active = append(active, n)
	}
	sort.Strings(active)

	state := "idle"
	if len(active) > 0 {
		state = "working"
	}

	return Snapshot{
		State:       state,
		Current:     t.current,
		Active:      active,
		LastOutcome: t.lastOutcome,
		LastChanged: t.lastChanged,
	}
}
