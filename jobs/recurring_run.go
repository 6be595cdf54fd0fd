package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// RecurrenceRunner issues invoices from due recurrence rules.
type RecurrenceRunner interface {
	RunRecurring(ctx context.Context, asOf time.Time) (int, error)
}

// NewRecurringRunHandler returns the Asynq handler for the recurring run.
func NewRecurringRunHandler(runner RecurrenceRunner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		issued, err := runner.RunRecurring(ctx, time.Now())
		if err != nil {
			logger.Error("recurring run", slog.Any("error", err))
			return err
		}
		logger.Info("recurring run finished", slog.Int("issued", issued))
		return nil
	}
}
