// SPDX-License-Identifier: MIT

// Package bus provides the in-process pub/sub used to emit pipeline signals
// at phase boundaries. External observers (the status tracker, tests,
// automation hooks) subscribe by topic.
package bus

import "context"

// Topics published by the pipeline. Every terminal job state maps to exactly
// one of JobCompleted, JobInterrupted or DownloadFailed.
const (
	TopicDownloadCompleted = "download.completed"
	TopicDownloadFailed    = "download.failed"
	TopicAspectNormalized  = "aspect.normalized"
	TopicThumbnailEmbedded = "thumbnail.embedded"
	TopicResizeCompleted   = "resize.completed"
	TopicResizeFailed      = "resize.failed"
	TopicJobCompleted      = "job.completed"
	TopicJobInterrupted    = "job.interrupted"
	TopicFileDeleted       = "file.deleted"
	TopicDirectoryCleared  = "directory.cleared"
)

// Message is an event payload, one of the typed structs below.
type Message interface{}

// DownloadCompleted fires after the transfer is atomically published,
// before post-processing begins.
type DownloadCompleted struct {
	URL  string
	Path string
}

// DownloadFailed fires on any terminal failure other than deadline expiry.
type DownloadFailed struct {
	URL   string
	Error string
}

// AspectNormalized fires only when the normalize step applied successfully.
type AspectNormalized struct {
	Path string
}

// ThumbnailEmbedded fires only when the embed step applied successfully.
type ThumbnailEmbedded struct {
	Path string
}

// ResizeCompleted fires when the target dimensions are achieved, whether or
// not a re-encode was needed.
type ResizeCompleted struct {
	Path   string
	Width  int
	Height int
}

// ResizeFailed fires when a requested resize could not be applied. The
// downloaded artifact remains valid.
type ResizeFailed struct {
	Path string
}

// JobCompleted fires once per successful job after the post-processing chain
// finishes, regardless of individual cosmetic step outcomes.
type JobCompleted struct {
	URL     string
	Path    string
	Resized bool
}

// JobInterrupted fires only when the total acquisition deadline expires.
type JobInterrupted struct {
	URL  string
	Path string
}

// FileDeleted fires after a confined file delete.
type FileDeleted struct {
	Path string
}

// DirectoryCleared fires after a confined directory sweep.
type DirectoryCleared struct {
	Path    string
	Removed int
	Failed  int
}

// Subscriber receives messages for one topic.
type Subscriber interface {
	// C returns a read-only message channel.
	C() <-chan Message
	// Close unsubscribes.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}
