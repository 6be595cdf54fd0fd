package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly-in/ledgerly/internal/billing"
	"github.com/ledgerly-in/ledgerly/internal/shared"
)

type memoryPaymentsRepo struct {
	payments map[int64]*Payment
	nextID   int64
	seq      int64
}

func newMemoryPaymentsRepo() *memoryPaymentsRepo {
	return &memoryPaymentsRepo{payments: make(map[int64]*Payment)}
}

func (r *memoryPaymentsRepo) Create(ctx context.Context, p Payment) (*Payment, error) {
	r.nextID++
	p.ID = r.nextID
	clone := p
	r.payments[p.ID] = &clone
	return &p, nil
}

func (r *memoryPaymentsRepo) UpdateStatus(ctx context.Context, tenantID, id int64, status PaymentStatus) error {
	p, ok := r.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *memoryPaymentsRepo) Get(ctx context.Context, tenantID, id int64) (*Payment, error) {
	p, ok := r.payments[id]
	if !ok || p.TenantID != tenantID {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memoryPaymentsRepo) List(ctx context.Context, tenantID, invoiceID int64, limit, offset int) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.TenantID != tenantID {
			continue
		}
		if invoiceID > 0 && p.InvoiceID != invoiceID {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *memoryPaymentsRepo) NextPaymentNumber(ctx context.Context, tenantID int64) (string, error) {
	r.seq++
	return fmt.Sprintf("PAY-%06d", r.seq), nil
}

type fakeLedger struct {
	invoice   *billing.Invoice
	applyErr  error
	linkCalls int
}

func (l *fakeLedger) GetInvoice(ctx context.Context, tenantID, id int64) (*billing.Invoice, error) {
	if l.invoice == nil {
		return nil, billing.ErrInvoiceNotFound
	}
	clone := *l.invoice
	return &clone, nil
}

func (l *fakeLedger) ApplyPayment(ctx context.Context, tenantID, id int64, amount float64) (*billing.Invoice, error) {
	if l.applyErr != nil {
		return nil, l.applyErr
	}
	l.invoice.PaidAmount += amount
	l.invoice.Balance -= amount
	if l.invoice.Balance == 0 {
		l.invoice.Status = billing.StatusPaid
	} else {
		l.invoice.Status = billing.StatusPartiallyPaid
	}
	clone := *l.invoice
	return &clone, nil
}

func (l *fakeLedger) AttachPaymentLink(ctx context.Context, tenantID, id int64, link string) (*billing.Invoice, error) {
	l.linkCalls++
	l.invoice.PaymentLink = link
	clone := *l.invoice
	return &clone, nil
}

type memoryIdemStore struct {
	keys map[string]bool
}

func newMemoryIdemStore() *memoryIdemStore {
	return &memoryIdemStore{keys: make(map[string]bool)}
}

func (s *memoryIdemStore) CheckAndInsert(ctx context.Context, tenantID int64, key, module string) error {
	composite := fmt.Sprintf("%d:%s", tenantID, key)
	if s.keys[composite] {
		return shared.ErrIdempotencyConflict
	}
	s.keys[composite] = true
	return nil
}

func (s *memoryIdemStore) Delete(ctx context.Context, tenantID int64, key string) error {
	delete(s.keys, fmt.Sprintf("%d:%s", tenantID, key))
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openInvoice() *billing.Invoice {
	return &billing.Invoice{
		ID:       10,
		TenantID: 1,
		Number:   "INV-000010",
		Total:    1180,
		Balance:  1180,
		Status:   billing.StatusSent,
	}
}

func TestRecordPaymentCompletes(t *testing.T) {
	repo := newMemoryPaymentsRepo()
	ledger := &fakeLedger{invoice: openInvoice()}
	svc := NewService(testLogger(), repo, ledger, newMemoryIdemStore(), nil)

	payment, inv, err := svc.Record(context.Background(), 1, RecordPaymentRequest{
		InvoiceID:      10,
		Amount:         500,
		Method:         "upi",
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, payment.Status)
	require.Equal(t, "PAY-000001", payment.Number)
	require.NotEmpty(t, payment.TransactionID)
	require.Equal(t, billing.StatusPartiallyPaid, inv.Status)
	require.Equal(t, 680.0, inv.Balance)
}

func TestRecordPaymentReplayRejected(t *testing.T) {
	repo := newMemoryPaymentsRepo()
	ledger := &fakeLedger{invoice: openInvoice()}
	svc := NewService(testLogger(), repo, ledger, newMemoryIdemStore(), nil)

	req := RecordPaymentRequest{
		InvoiceID:      10,
		Amount:         500,
		Method:         "card",
		IdempotencyKey: "key-replay",
	}
	_, _, err := svc.Record(context.Background(), 1, req)
	require.NoError(t, err)

	_, _, err = svc.Record(context.Background(), 1, req)
	require.ErrorIs(t, err, ErrDuplicatePayment)

	// the replay never reached the ledger
	require.Equal(t, 680.0, ledger.invoice.Balance)
}

func TestRecordPaymentOverpaymentRejectedBeforeWrite(t *testing.T) {
	repo := newMemoryPaymentsRepo()
	ledger := &fakeLedger{invoice: openInvoice()}
	idem := newMemoryIdemStore()
	svc := NewService(testLogger(), repo, ledger, idem, nil)

	_, _, err := svc.Record(context.Background(), 1, RecordPaymentRequest{
		InvoiceID:      10,
		Amount:         2000,
		Method:         "cash",
		IdempotencyKey: "key-over",
	})
	require.ErrorIs(t, err, billing.ErrOverpayment)
	require.Empty(t, repo.payments)

	// the key was released, so a corrected retry succeeds
	_, _, err = svc.Record(context.Background(), 1, RecordPaymentRequest{
		InvoiceID:      10,
		Amount:         1180,
		Method:         "cash",
		IdempotencyKey: "key-over",
	})
	require.NoError(t, err)
	require.Equal(t, billing.StatusPaid, ledger.invoice.Status)
}

func TestRecordPaymentLedgerFailureMarksFailed(t *testing.T) {
	repo := newMemoryPaymentsRepo()
	ledger := &fakeLedger{invoice: openInvoice(), applyErr: errors.New("write conflict")}
	idem := newMemoryIdemStore()
	svc := NewService(testLogger(), repo, ledger, idem, nil)

	_, _, err := svc.Record(context.Background(), 1, RecordPaymentRequest{
		InvoiceID:      10,
		Amount:         500,
		Method:         "transfer",
		IdempotencyKey: "key-fail",
	})
	require.Error(t, err)

	require.Len(t, repo.payments, 1)
	for _, p := range repo.payments {
		require.Equal(t, StatusFailed, p.Status)
	}
	require.Empty(t, idem.keys)
}

func TestGeneratePaymentLink(t *testing.T) {
	ledger := &fakeLedger{invoice: openInvoice()}
	links := NewHostedLinkGenerator("https://pay.example.com/")
	svc := NewService(testLogger(), newMemoryPaymentsRepo(), ledger, newMemoryIdemStore(), links)

	inv, err := svc.GeneratePaymentLink(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, ledger.linkCalls)
	require.Contains(t, inv.PaymentLink, "https://pay.example.com/pay/")
}
