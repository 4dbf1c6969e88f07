package tasks

import (
	"context"
	"fmt"
	"time"
)

// newMediaCleanupTask deletes stored blocks older than media.retention.
// A zero retention keeps everything.
func newMediaCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "media_cleanup")

	return func(ctx context.Context) error {
		retention := deps.Config.Media.Retention
		if retention <= 0 {
			log.DebugContext(ctx, "Media retention disabled, skipping cleanup")
			return nil
		}

		cutoff := time.Now().Add(-retention)
		log.InfoContext(ctx, "Starting scheduled media cleanup task...", "cutoff", cutoff)

		deleted, err := deps.Store.DeleteBlocksBefore(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Media cleanup task failed", "error", err)
			return fmt.Errorf("media cleanup failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled media cleanup task completed successfully", "deleted", deleted)
		return nil
	}
}
