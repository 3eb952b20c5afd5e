// SPDX-License-Identifier: MIT

package status

import (
	"context"

	"github.com/geek-md/media-downloader/internal/bus"
	"github.com/geek-md/media-downloader/internal/log"
)

// Listen subscribes to the two terminal job topics and records outcomes on
// the tracker until ctx is cancelled. Outcome updates are last-write-wins.
func Listen(ctx context.Context, b bus.Bus, t *Tracker) error {
	logger := log.WithComponent("status")

	completed, err := b.Subscribe(ctx, bus.TopicJobCompleted)
	if err != nil {
		return err
	}
	defer func() { _ = completed.Close() }()

	interrupted, err := b.Subscribe(ctx, bus.TopicJobInterrupted)
	if err != nil {
		return err
	}
	defer func() { _ = interrupted.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-completed.C():
			if !ok {
				return nil
			}
			t.RecordOutcome(OutcomeCompleted)
			if m, ok := msg.(bus.JobCompleted); ok {
				logger.Debug().
					Str(log.FieldEvent, "status.outcome").
					Str(log.FieldPath, m.Path).
					Msg("job completed")
			}
		case msg, ok := <-interrupted.C():
			if !ok {
				return nil
			}
			t.RecordOutcome(OutcomeInterrupted)
			if m, ok := msg.(bus.JobInterrupted); ok {
				logger.Warn().
					Str(log.FieldEvent, "status.outcome").
					Str(log.FieldURL, m.URL).
					Msg("job interrupted")
			}
		}
	}
}
