package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ledgerly-in/ledgerly/internal/billing"
)

// Mailer delivers customer notifications.
type Mailer interface {
	SendInvoiceIssued(to, customerName, number string, total float64, dueDate, paymentLink string) error
	SendDunningReminder(to, customerName, number string, balance float64, daysOverdue int) error
}

// NewInvoiceEmailHandler returns the Asynq handler for invoice notifications.
func NewInvoiceEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload billing.InvoiceEmail
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.To == "" {
			return asynq.SkipRetry
		}
		if err := mailer.SendInvoiceIssued(payload.To, payload.CustomerName, payload.InvoiceNumber,
			payload.Total, payload.DueDate, payload.PaymentLink); err != nil {
			logger.Error("send invoice email",
				slog.Any("error", err), slog.String("invoice", payload.InvoiceNumber))
			return err
		}
		logger.Info("invoice email sent",
			slog.String("invoice", payload.InvoiceNumber), slog.String("to", payload.To))
		return nil
	}
}
