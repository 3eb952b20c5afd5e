// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"

	"github.com/geek-md/media-downloader/internal/ffmpeg"
)

// Request describes one download job. Immutable once accepted.
type Request struct {
	// URL is the source locator.
	URL string `json:"url"`
	// Subdir is an optional sub-path under the base root.
	Subdir string `json:"subdir,omitempty"`
	// Filename overrides name derivation from the locator or response.
	Filename string `json:"filename,omitempty"`
	// Overwrite overrides the configured default policy when non-nil.
	Overwrite *bool `json:"overwrite,omitempty"`
	// TimeoutSec is the total acquisition deadline in seconds; zero means
	// the configured default.
	TimeoutSec int `json:"timeout,omitempty"`
	// ResizeEnabled requests the conditional resize step.
	ResizeEnabled bool `json:"resize_enabled,omitempty"`
	// ResizeWidth and ResizeHeight are the resize targets; zero means the
	// configured defaults.
	ResizeWidth  int `json:"resize_width,omitempty"`
	ResizeHeight int `json:"resize_height,omitempty"`
}

// Result is the terminal state of one job.
type Result struct {
	Success   bool
	FinalPath string
	Resized   bool
	Err       error
}

// StepOutcome is the tri-state result of a best-effort post-processing step.
type StepOutcome int

const (
	// StepSkipped means the file already satisfied the target or a
	// prerequisite (such as a dimension probe) was unavailable.
	StepSkipped StepOutcome = iota
	// StepApplied means the step mutated the file successfully.
	StepApplied
	// StepFailed means the step failed; the file is unchanged.
	StepFailed
)

func (o StepOutcome) String() string {
	switch o {
	case StepSkipped:
		return "skipped"
	case StepApplied:
		return "applied"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RemoteStatusError reports a non-success HTTP status from the source.
type RemoteStatusError struct {
	URL        string
	StatusCode int
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.URL)
}

// DestinationExistsError reports a destination collision while the effective
// overwrite policy forbids replacement.
type DestinationExistsError struct {
	Path string
}

func (e *DestinationExistsError) Error() string {
	return fmt.Sprintf("file exists and overwrite is disabled: %s", e.Path)
}

// Prober resolves video dimensions, returning false when they cannot be
// determined.
type Prober interface {
	Probe(ctx context.Context, path string) (ffmpeg.Dimensions, bool)
}

// Transformer executes a single external transform operation.
type Transformer interface {
	Run(ctx context.Context, op ffmpeg.Op) error
}

// StatusRecorder brackets named operations on the shared status tracker.
type StatusRecorder interface {
	StartOperation(name string)
	EndOperation(name string)
}
