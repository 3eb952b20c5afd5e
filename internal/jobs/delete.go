// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geek-md/media-downloader/internal/bus"
	"github.com/geek-md/media-downloader/internal/fsutil"
	"github.com/geek-md/media-downloader/internal/log"
	"github.com/geek-md/media-downloader/internal/metrics"
	"github.com/geek-md/media-downloader/internal/status"
)

// Deleter performs the delete-adjacent operations. Every target path shares
// the same containment contract as downloads: it must be proven a descendant
// of the base root before mutation.
type Deleter struct {
	base   string
	bus    bus.Bus
	status StatusRecorder
}

// NewDeleter wires a Deleter confined to base.
func NewDeleter(base string, b bus.Bus, st StatusRecorder) *Deleter {
	return &Deleter{base: base, bus: b, status: st}
}

// confine resolves path (absolute or root-relative) inside the base root.
func (d *Deleter) confine(path string) (string, error) {
	if filepath.IsAbs(path) {
		return fsutil.ConfineAbsPath(d.base, path)
	}
	return fsutil.ConfineRelPath(d.base, path)
}

// DeleteFile removes a single regular file under the base root.
func (d *Deleter) DeleteFile(ctx context.Context, path string) error {
	logger := log.WithComponentFromContext(ctx, "deleter")

	d.status.StartOperation(status.OpFileDeleting)
	defer d.status.EndOperation(status.OpFileDeleting)

	target, err := d.confine(path)
	if err != nil {
		metrics.RecordDelete("file", "rejected")
		return err
	}
	if err := fsutil.IsRegularFile(target); err != nil {
		metrics.RecordDelete("file", "rejected")
		return err
	}
	if err := os.Remove(target); err != nil {
		metrics.RecordDelete("file", "error")
		return fmt.Errorf("delete file: %w", err)
	}

	metrics.RecordDelete("file", "ok")
	logger.Info().
		Str(log.FieldEvent, "delete.file").
		Str(log.FieldPath, target).
		Msg("file deleted")
	d.publish(ctx, bus.TopicFileDeleted, bus.FileDeleted{Path: target})
	return nil
}

// ClearDirectory removes the regular files directly inside a directory under
// the base root. Sub-directories are left untouched, and failure on an
// individual file does not abort the sweep of the remainder.
func (d *Deleter) ClearDirectory(ctx context.Context, path string) (removed, failed int, err error) {
	logger := log.WithComponentFromContext(ctx, "deleter")

	d.status.StartOperation(status.OpDirDeleting)
	defer d.status.EndOperation(status.OpDirDeleting)

	target, err := d.confine(path)
	if err != nil {
		metrics.RecordDelete("directory", "rejected")
		return 0, 0, err
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		metrics.RecordDelete("directory", "error")
		return 0, 0, fmt.Errorf("read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		file := filepath.Join(target, entry.Name())
		if rmErr := os.Remove(file); rmErr != nil {
			failed++
			logger.Warn().Err(rmErr).
				Str(log.FieldEvent, "delete.sweep_skip").
				Str(log.FieldPath, file).
				Msg("failed to delete file, continuing sweep")
			continue
		}
		removed++
	}

	metrics.RecordDelete("directory", "ok")
	logger.Info().
		Str(log.FieldEvent, "delete.directory").
		Str(log.FieldPath, target).
		Int("removed", removed).
		Int("failed", failed).
		Msg("directory cleared")
	d.publish(ctx, bus.TopicDirectoryCleared, bus.DirectoryCleared{Path: target, Removed: removed, Failed: failed})
	return removed, failed, nil
}

func (d *Deleter) publish(ctx context.Context, topic string, msg bus.Message) {
	if err := d.bus.Publish(ctx, topic, msg); err != nil {
		lg := log.WithComponent("deleter")
		lg.Warn().Err(err).Str("topic", topic).Msg("signal publish failed")
	}
}
