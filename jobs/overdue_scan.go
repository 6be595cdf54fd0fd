package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type overdueRow struct {
	number        string
	balance       float64
	dueDate       time.Time
	customerName  string
	customerEmail string
}

// RunOverdueScan sends a dunning reminder for every open invoice past its due
// date. Send failures are logged per invoice so one bad address does not stop
// the scan.
func RunOverdueScan(ctx context.Context, pool *pgxpool.Pool, mailer Mailer, logger *slog.Logger, asOf time.Time) (int, error) {
	if pool == nil {
		return 0, nil
	}
	query := `
		SELECT i.number, i.balance, i.due_date, c.name, c.email
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.status IN ('SENT', 'VIEWED', 'PARTIALLY_PAID')
			AND i.balance > 0
			AND i.due_date < $1
		ORDER BY i.due_date`

	rows, err := pool.Query(ctx, query, asOf)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var overdue []overdueRow
	for rows.Next() {
		var row overdueRow
		if err := rows.Scan(&row.number, &row.balance, &row.dueDate, &row.customerName, &row.customerEmail); err != nil {
			return 0, err
		}
		overdue = append(overdue, row)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range overdue {
		if row.customerEmail == "" {
			continue
		}
		days := int(asOf.Sub(row.dueDate).Hours() / 24)
		if err := mailer.SendDunningReminder(row.customerEmail, row.customerName, row.number, row.balance, days); err != nil {
			logger.Error("send dunning reminder",
				slog.Any("error", err), slog.String("invoice", row.number))
			continue
		}
		sent++
	}
	logger.Info("overdue scan finished",
		slog.Int("overdue", len(overdue)), slog.Int("reminders_sent", sent))
	return sent, nil
}

// NewOverdueScanHandler returns the Asynq handler for the nightly scan.
func NewOverdueScanHandler(pool *pgxpool.Pool, mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		_, err := RunOverdueScan(ctx, pool, mailer, logger, time.Now())
		return err
	}
}
