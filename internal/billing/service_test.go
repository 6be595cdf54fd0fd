package billing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryBillingRepo struct {
	invoices   map[int64]*Invoice
	customers  map[int64]*CustomerInfo
	nextID     int64
	invoiceSeq int64
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{
		invoices:  make(map[int64]*Invoice),
		customers: make(map[int64]*CustomerInfo),
	}
}

func (r *memoryBillingRepo) CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error) {
	r.nextID++
	inv.ID = r.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	clone := *inv
	r.invoices[inv.ID] = &clone
	return inv, nil
}

func (r *memoryBillingRepo) GetInvoice(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, ErrInvoiceNotFound
	}
	clone := *inv
	return &clone, nil
}

func (r *memoryBillingRepo) ListInvoices(ctx context.Context, tenantID int64, req ListInvoicesRequest) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.TenantID != tenantID {
			continue
		}
		if req.Status != "" && inv.Status != req.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memoryBillingRepo) ReplaceDraft(ctx context.Context, inv *Invoice) (*Invoice, error) {
	existing, ok := r.invoices[inv.ID]
	if !ok || existing.Status != StatusDraft {
		return nil, ErrNotDraft
	}
	inv.UpdatedAt = time.Now()
	clone := *inv
	r.invoices[inv.ID] = &clone
	return inv, nil
}

func (r *memoryBillingRepo) UpdateStatus(ctx context.Context, tenantID, id int64, from, to InvoiceStatus, at time.Time) error {
	inv, ok := r.invoices[id]
	if !ok || inv.Status != from {
		return &TransitionError{From: from, To: to}
	}
	inv.Status = to
	return nil
}

func (r *memoryBillingRepo) CancelInvoice(ctx context.Context, tenantID, id int64, reason string, at time.Time) error {
	inv, ok := r.invoices[id]
	if !ok || inv.Status == StatusPaid || inv.Status == StatusCancelled {
		return ErrInvoiceNotFound
	}
	inv.Status = StatusCancelled
	inv.CancelReason = reason
	return nil
}

func (r *memoryBillingRepo) DeleteDraft(ctx context.Context, tenantID, id int64) error {
	inv, ok := r.invoices[id]
	if !ok || inv.Status != StatusDraft {
		return ErrNotDraft
	}
	delete(r.invoices, id)
	return nil
}

func (r *memoryBillingRepo) ApplyPayment(ctx context.Context, tenantID, id int64, paidAmount, balance float64, status InvoiceStatus) error {
	inv, ok := r.invoices[id]
	if !ok {
		return ErrNotPayable
	}
	switch inv.Status {
	case StatusSent, StatusViewed, StatusPartiallyPaid:
	default:
		return ErrNotPayable
	}
	inv.PaidAmount = paidAmount
	inv.Balance = balance
	inv.Status = status
	return nil
}

func (r *memoryBillingRepo) SetPaymentLink(ctx context.Context, tenantID, id int64, link string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.PaymentLink = link
	return nil
}

func (r *memoryBillingRepo) NextInvoiceNumber(ctx context.Context, tenantID int64) (string, error) {
	r.invoiceSeq++
	return fmt.Sprintf("INV-%06d", r.invoiceSeq), nil
}

func (r *memoryBillingRepo) GetCustomerInfo(ctx context.Context, tenantID, customerID int64) (*CustomerInfo, error) {
	c, ok := r.customers[customerID]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return c, nil
}

func (r *memoryBillingRepo) ListDueRecurrences(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.Recurrence == nil || inv.Status == StatusCancelled {
			continue
		}
		if !inv.Recurrence.NextRunAt.After(asOf) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memoryBillingRepo) ScheduleNextRun(ctx context.Context, invoiceID int64, next time.Time) error {
	inv, ok := r.invoices[invoiceID]
	if !ok || inv.Recurrence == nil {
		return ErrInvoiceNotFound
	}
	inv.Recurrence.NextRunAt = next
	return nil
}

type recordingDispatcher struct {
	emails []InvoiceEmail
}

func (d *recordingDispatcher) EnqueueInvoiceEmail(ctx context.Context, email InvoiceEmail) error {
	d.emails = append(d.emails, email)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedCustomer(repo *memoryBillingRepo) {
	repo.customers[1] = &CustomerInfo{ID: 1, Name: "Sharma Enterprises", Email: "accounts@sharma.example", StateCode: "27"}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID:    1,
		PlaceOfSupply: "27",
		Lines: []LineItemRequest{
			{Description: "Consulting", Quantity: 2, Rate: 500, TaxMode: "GST", CGSTRate: 9, SGSTRate: 9, IGSTRate: 18},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-000001", inv.Number)
	require.Equal(t, StatusDraft, inv.Status)
	require.Equal(t, 1000.0, inv.Subtotal)
	require.Equal(t, 180.0, inv.TaxAmount)
	require.Equal(t, 1180.0, inv.Total)
	require.Equal(t, 1180.0, inv.Balance)
	require.Zero(t, inv.PaidAmount)
	// customer state defaulted from the customer record: intrastate split
	require.Equal(t, 90.0, inv.Lines[0].CGSTAmount)
	require.Zero(t, inv.Lines[0].IGSTAmount)
}

func TestCreateInvoiceInterstateUsesIGST(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID:    1,
		PlaceOfSupply: "07",
		Lines: []LineItemRequest{
			{Description: "Goods", Quantity: 1, Rate: 1000, TaxMode: "GST", CGSTRate: 9, SGSTRate: 9, IGSTRate: 18},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 180.0, inv.Lines[0].IGSTAmount)
	require.Zero(t, inv.Lines[0].CGSTAmount)
	require.Zero(t, inv.Lines[0].SGSTAmount)
}

func TestUpdateInvoiceRejectsNonDraft(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 1,
		Lines:      []LineItemRequest{{Description: "Item", Quantity: 1, Rate: 100}},
	})
	require.NoError(t, err)

	_, err = svc.SendInvoice(context.Background(), 1, inv.ID)
	require.NoError(t, err)

	_, err = svc.UpdateInvoice(context.Background(), 1, inv.ID, UpdateInvoiceRequest{
		Lines: []LineItemRequest{{Description: "Changed", Quantity: 1, Rate: 200}},
	})
	require.ErrorIs(t, err, ErrNotDraft)
}

func TestSendInvoiceDispatchesEmail(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	dispatcher := &recordingDispatcher{}
	svc := NewService(testLogger(), repo, dispatcher, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID:       1,
		PaymentTermsDays: 30,
		Lines:            []LineItemRequest{{Description: "Item", Quantity: 1, Rate: 100, TaxMode: "PLAIN", TaxRate: 18}},
	})
	require.NoError(t, err)

	sent, err := svc.SendInvoice(context.Background(), 1, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	require.Len(t, dispatcher.emails, 1)
	require.Equal(t, "accounts@sharma.example", dispatcher.emails[0].To)
	require.Equal(t, inv.Number, dispatcher.emails[0].InvoiceNumber)
	require.Equal(t, 118.0, dispatcher.emails[0].Total)
}

func TestSendInvoiceTwiceRejected(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 1,
		Lines:      []LineItemRequest{{Description: "Item", Quantity: 1, Rate: 100}},
	})
	require.NoError(t, err)

	_, err = svc.SendInvoice(context.Background(), 1, inv.ID)
	require.NoError(t, err)

	_, err = svc.SendInvoice(context.Background(), 1, inv.ID)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, StatusSent, terr.From)
}

func TestMarkViewedIsIdempotent(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 1,
		Lines:      []LineItemRequest{{Description: "Item", Quantity: 1, Rate: 100}},
	})
	require.NoError(t, err)

	_, err = svc.SendInvoice(context.Background(), 1, inv.ID)
	require.NoError(t, err)

	viewed, err := svc.MarkViewed(context.Background(), 1, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusViewed, viewed.Status)

	again, err := svc.MarkViewed(context.Background(), 1, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusViewed, again.Status)
}

func TestApplyPaymentPartialThenFull(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 1,
		Lines:      []LineItemRequest{{Description: "Item", Quantity: 2, Rate: 500, TaxMode: "PLAIN", TaxRate: 18}},
	})
	require.NoError(t, err)
	require.Equal(t, 1180.0, inv.Total)

	_, err = svc.SendInvoice(context.Background(), 1, inv.ID)
	require.NoError(t, err)

	partial, err := svc.ApplyPayment(context.Background(), 1, inv.ID, 500)
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyPaid, partial.Status)
	require.Equal(t, 500.0, partial.PaidAmount)
	require.Equal(t, 680.0, partial.Balance)

	full, err := svc.ApplyPayment(context.Background(), 1, inv.ID, 680)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, full.Status)
	require.Equal(t, 1180.0, full.PaidAmount)
	require.Zero(t, full.Balance)
}

func TestApplyPaymentOverpaymentRejected(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 1,
		Lines:      []LineItemRequest{{Description: "Item", Quantity: 1, Rate: 1000}},
	})
	require.NoError(t, err)

	_, err = svc.SendInvoice(context.Background(), 1, inv.ID)
	require.NoError(t, err)

	_, err = svc.ApplyPayment(context.Background(), 1, inv.ID, 1000.01)
	require.ErrorIs(t, err, ErrOverpayment)

	// balance untouched by the rejected payment
	unchanged, err := svc.GetInvoice(context.Background(), 1, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 1000.0, unchanged.Balance)
	require.Zero(t, unchanged.PaidAmount)
	require.Equal(t, StatusSent, unchanged.Status)
}

func TestApplyPaymentToDraftRejected(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 1,
		Lines:      []LineItemRequest{{Description: "Item", Quantity: 1, Rate: 1000}},
	})
	require.NoError(t, err)

	_, err = svc.ApplyPayment(context.Background(), 1, inv.ID, 100)
	require.ErrorIs(t, err, ErrNotPayable)
}

func TestCancelPaidInvoiceRejected(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 1,
		Lines:      []LineItemRequest{{Description: "Item", Quantity: 1, Rate: 100}},
	})
	require.NoError(t, err)

	_, err = svc.SendInvoice(context.Background(), 1, inv.ID)
	require.NoError(t, err)
	_, err = svc.ApplyPayment(context.Background(), 1, inv.ID, 100)
	require.NoError(t, err)

	_, err = svc.CancelInvoice(context.Background(), 1, inv.ID, "mistake")
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
}

func TestDeleteInvoiceDraftOnly(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 1,
		Lines:      []LineItemRequest{{Description: "Item", Quantity: 1, Rate: 100}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteInvoice(context.Background(), 1, inv.ID))
	_, err = svc.GetInvoice(context.Background(), 1, inv.ID)
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestRunRecurringIssuesAndSchedules(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedCustomer(repo)
	svc := NewService(testLogger(), repo, nil, nil, nil)

	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceRequest{
		CustomerID:       1,
		PlaceOfSupply:    "27",
		PaymentTermsDays: 15,
		Lines:            []LineItemRequest{{Description: "Retainer", Quantity: 1, Rate: 5000, TaxMode: "GST", CGSTRate: 9, SGSTRate: 9}},
		Recurrence:       &RecurrenceRequest{Frequency: "MONTHLY", NextRunAt: "2026-08-01"},
	})
	require.NoError(t, err)

	issued, err := svc.RunRecurring(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 1, issued)

	// schedule advanced one month
	stored, err := svc.GetInvoice(context.Background(), 1, tmpl.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), stored.Recurrence.NextRunAt)

	// a fresh DRAFT was issued with recomputed totals and its own number
	drafts, err := svc.ListInvoices(context.Background(), 1, ListInvoicesRequest{Status: StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	var clone *Invoice
	for i := range drafts {
		if drafts[i].ID != tmpl.ID {
			clone = &drafts[i]
		}
	}
	require.NotNil(t, clone)
	require.Equal(t, "INV-000002", clone.Number)
	require.Equal(t, 5900.0, clone.Total)
	require.Equal(t, asOf.AddDate(0, 0, 15), clone.DueDate)
	require.Nil(t, clone.Recurrence)

	// immediately re-running issues nothing new
	issued, err = svc.RunRecurring(context.Background(), asOf)
	require.NoError(t, err)
	require.Zero(t, issued)
}
