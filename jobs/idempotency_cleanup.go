package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// KeyStore purges stale idempotency keys.
type KeyStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// Keys older than this no longer guard any retry window worth honouring.
const idempotencyRetention = 30 * 24 * time.Hour

// NewIdempotencyCleanupHandler returns the Asynq handler for key cleanup.
func NewIdempotencyCleanupHandler(store KeyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			logger.Error("idempotency cleanup", slog.Any("error", err))
			return err
		}
		logger.Info("idempotency cleanup finished")
		return nil
	}
}
