package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed queries for reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListOutstanding returns invoices with a balance still open, excluding
// drafts and terminal states.
func (r *Repository) ListOutstanding(ctx context.Context, tenantID int64) ([]OutstandingInvoice, error) {
	query := `
		SELECT id, number, customer_id, due_date, balance
		FROM invoices
		WHERE tenant_id = $1
			AND status IN ('SENT', 'VIEWED', 'PARTIALLY_PAID')
			AND balance > 0
		ORDER BY due_date`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutstandingInvoice
	for rows.Next() {
		var inv OutstandingInvoice
		var dueDate pgtype.Date
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &dueDate, &inv.Balance); err != nil {
			return nil, err
		}
		if dueDate.Valid {
			inv.DueDate = dueDate.Time
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
