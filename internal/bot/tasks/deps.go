// Package tasks implements the scheduled maintenance tasks of the companion bot.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/companionbot/internal/config"
)

// MaintenanceStore is the part of the store the tasks need. database.Store satisfies it.
type MaintenanceStore interface {
	RunSQLMaintenance(ctx context.Context) error
	DeleteBlocksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  MaintenanceStore
	Config *config.Config
}
