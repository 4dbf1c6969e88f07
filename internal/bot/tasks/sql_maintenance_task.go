package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// sqlMaintenanceTimeout bounds VACUUM, which holds the single SQLite writer.
const sqlMaintenanceTimeout = 10 * time.Minute

// newSQLMaintenanceTask vacuums and optimizes the SQLite database that holds
// chat history, media blocks and settings.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")
	if deps.Config != nil {
		log = log.With("db_path", deps.Config.Database.Path)
	}

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, sqlMaintenanceTimeout)
		defer cancel()

		log.InfoContext(ctx, "Vacuuming database", "timeout", sqlMaintenanceTimeout)
		started := time.Now()

		err := deps.Store.RunSQLMaintenance(ctx)
		elapsed := time.Since(started)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			log.WarnContext(ctx, "Database maintenance timed out", "elapsed", elapsed)
			return fmt.Errorf("sql maintenance timed out after %s: %w", elapsed.Round(time.Second), err)
		case err != nil:
			log.ErrorContext(ctx, "Database maintenance failed", "error", err, "elapsed", elapsed)
			return fmt.Errorf("sql maintenance: %w", err)
		}

		log.InfoContext(ctx, "Database vacuumed and optimized", "elapsed", elapsed)
		return nil
	}
}
