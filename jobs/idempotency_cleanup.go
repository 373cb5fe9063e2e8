package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/b2bmarket/marketplace/internal/jobs"
)

// KeyPurger removes idempotency keys older than a retention window.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges expired idempotency keys.
type IdempotencyCleanupJob struct {
	Store   KeyPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the job handler.
func NewIdempotencyCleanupJob(store KeyPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, task *asynq.Task) error {
	payload := IdempotencyCleanupPayload{RetentionHours: 24}
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	if payload.RetentionHours <= 0 {
		payload.RetentionHours = 24
	}

	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	removed, err := j.Store.Cleanup(ctx, time.Duration(payload.RetentionHours)*time.Hour)
	if err != nil {
		j.Logger.Error("idempotency cleanup", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.AddPurged("idempotency_keys", removed)
	j.Logger.Info("idempotency cleanup", slog.Int64("removed", removed), slog.Int("retention_hours", payload.RetentionHours))
	return tracker.End(nil)
}
