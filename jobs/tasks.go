package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecycleCleanup purges recycle-bin transactions past retention.
	TaskRecycleCleanup = "ledger:recycle_cleanup"
)

// RecycleCleanupPayload configures one cleanup run.
type RecycleCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewRecycleCleanupTask constructs the cleanup task.
func NewRecycleCleanupTask(payload RecycleCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecycleCleanup, data), nil
}

// CleanupService is the slice of the ledger the worker needs.
type CleanupService interface {
	CleanupExpired(ctx context.Context, retentionDays int) (int, error)
}

// NewRecycleCleanupHandler builds the asynq handler for cleanup tasks.
func NewRecycleCleanupHandler(svc CleanupService, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RecycleCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		purged, err := svc.CleanupExpired(ctx, payload.RetentionDays)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("recycle cleanup", slog.Int("purged", purged))
		}
		return nil
	}
}
