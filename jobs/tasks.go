// Package jobs contains the background task definitions and the Asynq worker
// that processes them.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerly-in/ledgerly/internal/billing"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskInvoiceEmail delivers an invoice-issued notification.
	TaskInvoiceEmail = "invoice:email"
	// TaskOverdueScan walks open invoices and sends dunning reminders.
	TaskOverdueScan = "invoice:overdue_scan"
	// TaskRecurringRun materialises invoices from due recurrence rules.
	TaskRecurringRun = "invoice:recurring_run"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "housekeeping:idempotency_cleanup"
)

// NewInvoiceEmailTask constructs an Asynq task for an invoice notification.
func NewInvoiceEmailTask(payload billing.InvoiceEmail) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceEmail, data, asynq.Queue(QueueDefault)), nil
}

// ScanPayload carries scheduling metadata for periodic tasks.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewOverdueScanTask constructs the nightly overdue-scan task.
func NewOverdueScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, body, asynq.Queue(QueueDefault)), nil
}

// NewRecurringRunTask constructs the recurring-invoice run task.
func NewRecurringRunTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecurringRun, body, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask constructs the idempotency-key cleanup task.
func NewIdempotencyCleanupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
