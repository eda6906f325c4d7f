package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// KeyCleaner prunes idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob removes stale dispatch keys.
type IdempotencyCleanupJob struct {
	Keys   KeyCleaner
	Logger *slog.Logger
}

// NewIdempotencyCleanupJob constructs the job handler.
func NewIdempotencyCleanupJob(keys KeyCleaner, logger *slog.Logger) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Keys: keys, Logger: logger}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: store not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionHours <= 0 {
		payload.RetentionHours = 24 * 30
	}
	tracker := defaultJobMetrics.Track(TaskIdempotencyCleanup)
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if err := j.Keys.Cleanup(ctx, retention); err != nil {
		if j.Logger != nil {
			j.Logger.Error("cleanup idempotency keys", slog.Any("error", err))
		}
		return tracker.End(err)
	}
	if j.Logger != nil {
		j.Logger.Info("cleaned idempotency keys", slog.String("job", TaskIdempotencyCleanup), slog.Duration("retention", retention))
	}
	return tracker.End(nil)
}
