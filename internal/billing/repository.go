package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerly-in/ledgerly/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for billing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `
	id, tenant_id, number, customer_id, customer_state, place_of_supply,
	issue_date, due_date, payment_terms_days,
	subtotal, tax_amount, discount, total, paid_amount, balance, status,
	recurrence_frequency, recurrence_next_run, payment_link,
	sent_at, viewed_at, cancelled_at, cancel_reason, created_at, updated_at`

// CreateInvoice inserts the invoice and its lines in one transaction.
func (r *Repository) CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO invoices (
				tenant_id, number, customer_id, customer_state, place_of_supply,
				issue_date, due_date, payment_terms_days,
				subtotal, tax_amount, discount, total, paid_amount, balance, status,
				recurrence_frequency, recurrence_next_run, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, 'DRAFT', $14, $15, NOW(), NOW())
			RETURNING id, created_at, updated_at`

		var dueDate pgtype.Date
		if !inv.DueDate.IsZero() {
			dueDate = pgtype.Date{Time: inv.DueDate, Valid: true}
		}
		var recFreq pgtype.Text
		var recNext pgtype.Date
		if inv.Recurrence != nil {
			recFreq = pgtype.Text{String: string(inv.Recurrence.Frequency), Valid: true}
			recNext = pgtype.Date{Time: inv.Recurrence.NextRunAt, Valid: true}
		}

		err := tx.QueryRow(ctx, query,
			inv.TenantID, inv.Number, inv.CustomerID, inv.CustomerState, inv.PlaceOfSupply,
			inv.IssueDate, dueDate, inv.PaymentTermsDays,
			inv.Subtotal, inv.TaxAmount, inv.Discount, inv.Total, inv.Balance,
			recFreq, recNext,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateNumber
			}
			return err
		}

		return insertLines(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, inv *Invoice) error {
	query := `
		INSERT INTO invoice_lines (
			invoice_id, description, quantity, rate, tax_mode,
			tax_rate, igst_rate, cgst_rate, sgst_rate,
			amount, igst_amount, cgst_amount, sgst_amount, tax_amount, total, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		RETURNING id`

	for i := range inv.Lines {
		line := &inv.Lines[i]
		err := tx.QueryRow(ctx, query,
			inv.ID, line.Description, line.Quantity, line.Rate, string(line.TaxMode),
			line.TaxRate, line.IGSTRate, line.CGSTRate, line.SGSTRate,
			line.Amount, line.IGSTAmount, line.CGSTAmount, line.SGSTAmount, line.TaxAmount, line.Total,
		).Scan(&line.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetInvoice retrieves an invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 AND id = $2`

	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}

	inv.Lines, err = r.listLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *Repository) listLines(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	query := `
		SELECT id, description, quantity, rate, tax_mode,
			tax_rate, igst_rate, cgst_rate, sgst_rate,
			amount, igst_amount, cgst_amount, sgst_amount, tax_amount, total
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []LineItem
	for rows.Next() {
		var line LineItem
		var mode string
		err := rows.Scan(
			&line.ID, &line.Description, &line.Quantity, &line.Rate, &mode,
			&line.TaxRate, &line.IGSTRate, &line.CGSTRate, &line.SGSTRate,
			&line.Amount, &line.IGSTAmount, &line.CGSTAmount, &line.SGSTAmount, &line.TaxAmount, &line.Total,
		)
		if err != nil {
			return nil, err
		}
		line.TaxMode = TaxMode(mode)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListInvoices returns invoices with optional filtering. Lines are not loaded.
func (r *Repository) ListInvoices(ctx context.Context, tenantID int64, req ListInvoicesRequest) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1`
	args := []any{tenantID}
	argNum := 2

	if req.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if req.CustomerID > 0 {
		query += fmt.Sprintf(" AND customer_id = $%d", argNum)
		args = append(args, req.CustomerID)
		argNum++
	}
	if !req.FromDate.IsZero() {
		query += fmt.Sprintf(" AND issue_date >= $%d", argNum)
		args = append(args, req.FromDate)
		argNum++
	}
	if !req.ToDate.IsZero() {
		query += fmt.Sprintf(" AND issue_date <= $%d", argNum)
		args = append(args, req.ToDate)
		argNum++
	}

	query += " ORDER BY created_at DESC"
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// ReplaceDraft rewrites a draft invoice and its lines in one transaction.
func (r *Repository) ReplaceDraft(ctx context.Context, inv *Invoice) (*Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE invoices SET
				customer_state = $3, place_of_supply = $4, due_date = $5, payment_terms_days = $6,
				subtotal = $7, tax_amount = $8, discount = $9, total = $10, balance = $11,
				recurrence_frequency = $12, recurrence_next_run = $13, updated_at = NOW()
			WHERE tenant_id = $1 AND id = $2 AND status = 'DRAFT'
			RETURNING updated_at`

		var dueDate pgtype.Date
		if !inv.DueDate.IsZero() {
			dueDate = pgtype.Date{Time: inv.DueDate, Valid: true}
		}
		var recFreq pgtype.Text
		var recNext pgtype.Date
		if inv.Recurrence != nil {
			recFreq = pgtype.Text{String: string(inv.Recurrence.Frequency), Valid: true}
			recNext = pgtype.Date{Time: inv.Recurrence.NextRunAt, Valid: true}
		}

		err := tx.QueryRow(ctx, query,
			inv.TenantID, inv.ID, inv.CustomerState, inv.PlaceOfSupply, dueDate, inv.PaymentTermsDays,
			inv.Subtotal, inv.TaxAmount, inv.Discount, inv.Total, inv.Balance,
			recFreq, recNext,
		).Scan(&inv.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotDraft
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateStatus performs a guarded status transition write.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id int64, from, to InvoiceStatus, at time.Time) error {
	query := `
		UPDATE invoices
		SET status = $4, updated_at = NOW(),
			sent_at = CASE WHEN $4 = 'SENT' THEN $5 ELSE sent_at END,
			viewed_at = CASE WHEN $4 = 'VIEWED' THEN $5 ELSE viewed_at END
		WHERE tenant_id = $1 AND id = $2 AND status = $3`

	result, err := r.pool.Exec(ctx, query, tenantID, id, string(from), string(to), at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// CancelInvoice marks any non-terminal invoice CANCELLED.
func (r *Repository) CancelInvoice(ctx context.Context, tenantID, id int64, reason string, at time.Time) error {
	query := `
		UPDATE invoices
		SET status = 'CANCELLED', cancelled_at = $3, cancel_reason = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status NOT IN ('PAID', 'CANCELLED')`

	result, err := r.pool.Exec(ctx, query, tenantID, id, at, reason)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// DeleteDraft hard-deletes a DRAFT invoice and its lines.
func (r *Repository) DeleteDraft(ctx context.Context, tenantID, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.Exec(ctx,
			`DELETE FROM invoices WHERE tenant_id = $1 AND id = $2 AND status = 'DRAFT'`, tenantID, id)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrNotDraft
		}
		return nil
	})
}

// ApplyPayment writes the recomputed paid amount, balance and status.
func (r *Repository) ApplyPayment(ctx context.Context, tenantID, id int64, paidAmount, balance float64, status InvoiceStatus) error {
	query := `
		UPDATE invoices
		SET paid_amount = $3, balance = $4, status = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status NOT IN ('DRAFT', 'PAID', 'CANCELLED')`

	result, err := r.pool.Exec(ctx, query, tenantID, id, paidAmount, balance, string(status))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotPayable
	}
	return nil
}

// SetPaymentLink records a gateway payment link.
func (r *Repository) SetPaymentLink(ctx context.Context, tenantID, id int64, link string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE invoices SET payment_link = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, link)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// NextInvoiceNumber allocates the next per-tenant invoice number.
func (r *Repository) NextInvoiceNumber(ctx context.Context, tenantID int64) (string, error) {
	query := `
		INSERT INTO tenant_sequences (tenant_id, invoice_seq)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET invoice_seq = tenant_sequences.invoice_seq + 1
		RETURNING invoice_seq`

	var seq int64
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%06d", seq), nil
}

// GetCustomerInfo loads the customer fields billing needs.
func (r *Repository) GetCustomerInfo(ctx context.Context, tenantID, customerID int64) (*CustomerInfo, error) {
	query := `SELECT id, name, email, state_code FROM customers WHERE tenant_id = $1 AND id = $2`

	var info CustomerInfo
	err := r.pool.QueryRow(ctx, query, tenantID, customerID).Scan(&info.ID, &info.Name, &info.Email, &info.StateCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ListDueRecurrences returns recurrence templates due as of the given date,
// across all tenants, with lines loaded.
func (r *Repository) ListDueRecurrences(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE recurrence_frequency IS NOT NULL
			AND recurrence_next_run <= $1
			AND status <> 'CANCELLED'
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range templates {
		templates[i].Lines, err = r.listLines(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return templates, nil
}

// ScheduleNextRun advances a recurrence rule.
func (r *Repository) ScheduleNextRun(ctx context.Context, invoiceID int64, next time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE invoices SET recurrence_next_run = $2, updated_at = NOW() WHERE id = $1`,
		invoiceID, next)
	return err
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var customerState, placeOfSupply, status pgtype.Text
	var dueDate, recNext pgtype.Date
	var recFreq, paymentLink, cancelReason pgtype.Text
	var sentAt, viewedAt, cancelledAt pgtype.Timestamptz

	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.Number, &inv.CustomerID, &customerState, &placeOfSupply,
		&inv.IssueDate, &dueDate, &inv.PaymentTermsDays,
		&inv.Subtotal, &inv.TaxAmount, &inv.Discount, &inv.Total, &inv.PaidAmount, &inv.Balance, &status,
		&recFreq, &recNext, &paymentLink,
		&sentAt, &viewedAt, &cancelledAt, &cancelReason, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.CustomerState = customerState.String
	inv.PlaceOfSupply = placeOfSupply.String
	inv.Status = InvoiceStatus(status.String)
	inv.PaymentLink = paymentLink.String
	inv.CancelReason = cancelReason.String
	if dueDate.Valid {
		inv.DueDate = dueDate.Time
	}
	if recFreq.Valid {
		inv.Recurrence = &RecurrenceRule{Frequency: Frequency(recFreq.String)}
		if recNext.Valid {
			inv.Recurrence.NextRunAt = recNext.Time
		}
	}
	if sentAt.Valid {
		inv.SentAt = &sentAt.Time
	}
	if viewedAt.Valid {
		inv.ViewedAt = &viewedAt.Time
	}
	if cancelledAt.Valid {
		inv.CancelledAt = &cancelledAt.Time
	}
	return &inv, nil
}
