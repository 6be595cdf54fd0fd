package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the payment does not exist for this tenant.
var ErrNotFound = errors.New("payments: not found")

// Repository provides PostgreSQL backed persistence for payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a payment row.
func (r *Repository) Create(ctx context.Context, p Payment) (*Payment, error) {
	query := `
		INSERT INTO payments (
			tenant_id, invoice_id, number, amount, method, transaction_id,
			paid_at, status, note, idempotency_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.TenantID, p.InvoiceID, p.Number, p.Amount, p.Method, p.TransactionID,
		p.PaidAt, string(p.Status), p.Note, p.IdempotencyKey,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateStatus moves a payment between states.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id int64, status PaymentStatus) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, string(status))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves a payment scoped to the tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Payment, error) {
	query := `
		SELECT id, tenant_id, invoice_id, number, amount, method, transaction_id,
			paid_at, status, note, idempotency_key, created_at, updated_at
		FROM payments
		WHERE tenant_id = $1 AND id = $2`

	var p Payment
	var status string
	err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&p.ID, &p.TenantID, &p.InvoiceID, &p.Number, &p.Amount, &p.Method, &p.TransactionID,
		&p.PaidAt, &status, &p.Note, &p.IdempotencyKey, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = PaymentStatus(status)
	return &p, nil
}

// List returns payments for a tenant, optionally filtered by invoice.
func (r *Repository) List(ctx context.Context, tenantID, invoiceID int64, limit, offset int) ([]Payment, error) {
	query := `
		SELECT id, tenant_id, invoice_id, number, amount, method, transaction_id,
			paid_at, status, note, idempotency_key, created_at, updated_at
		FROM payments
		WHERE tenant_id = $1`
	args := []any{tenantID}
	argNum := 2

	if invoiceID > 0 {
		query += fmt.Sprintf(" AND invoice_id = $%d", argNum)
		args = append(args, invoiceID)
		argNum++
	}
	query += fmt.Sprintf(" ORDER BY paid_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		var status string
		err := rows.Scan(
			&p.ID, &p.TenantID, &p.InvoiceID, &p.Number, &p.Amount, &p.Method, &p.TransactionID,
			&p.PaidAt, &status, &p.Note, &p.IdempotencyKey, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.Status = PaymentStatus(status)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// NextPaymentNumber allocates the next per-tenant payment number.
func (r *Repository) NextPaymentNumber(ctx context.Context, tenantID int64) (string, error) {
	query := `
		INSERT INTO tenant_sequences (tenant_id, payment_seq)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET payment_seq = tenant_sequences.payment_seq + 1
		RETURNING payment_seq`

	var seq int64
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%06d", seq), nil
}
