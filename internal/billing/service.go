package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Sentinel errors surfaced to the API layer.
var (
	ErrInvoiceNotFound  = errors.New("billing: invoice not found")
	ErrNotDraft         = errors.New("billing: invoice is not a draft")
	ErrOverpayment      = errors.New("billing: payment exceeds outstanding balance")
	ErrNotPayable       = errors.New("billing: invoice is not open for payment")
	ErrDuplicateNumber  = errors.New("billing: invoice number already exists")
	ErrCustomerNotFound = errors.New("billing: customer not found")
)

// CustomerInfo is the slice of customer data billing needs.
type CustomerInfo struct {
	ID        int64
	Name      string
	Email     string
	StateCode string
}

// RepositoryPort defines data access methods for billing.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error)
	GetInvoice(ctx context.Context, tenantID, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, tenantID int64, req ListInvoicesRequest) ([]Invoice, error)
	ReplaceDraft(ctx context.Context, inv *Invoice) (*Invoice, error)
	UpdateStatus(ctx context.Context, tenantID, id int64, from, to InvoiceStatus, at time.Time) error
	CancelInvoice(ctx context.Context, tenantID, id int64, reason string, at time.Time) error
	DeleteDraft(ctx context.Context, tenantID, id int64) error
	ApplyPayment(ctx context.Context, tenantID, id int64, paidAmount, balance float64, status InvoiceStatus) error
	SetPaymentLink(ctx context.Context, tenantID, id int64, link string) error
	NextInvoiceNumber(ctx context.Context, tenantID int64) (string, error)
	GetCustomerInfo(ctx context.Context, tenantID, customerID int64) (*CustomerInfo, error)
	ListDueRecurrences(ctx context.Context, asOf time.Time) ([]Invoice, error)
	ScheduleNextRun(ctx context.Context, invoiceID int64, next time.Time) error
}

// Dispatcher enqueues notification work. Failures are logged, never surfaced:
// dispatch is fire-and-forget.
type Dispatcher interface {
	EnqueueInvoiceEmail(ctx context.Context, email InvoiceEmail) error
}

// InvoiceEmail is the payload handed to the notification queue.
type InvoiceEmail struct {
	To            string  `json:"to"`
	CustomerName  string  `json:"customer_name"`
	InvoiceNumber string  `json:"invoice_number"`
	Total         float64 `json:"total"`
	DueDate       string  `json:"due_date"`
	PaymentLink   string  `json:"payment_link,omitempty"`
}

// Invalidator bumps cached report versions after a write.
type Invalidator interface {
	Bump(ctx context.Context, tenantID int64) error
}

// Counter increments domain metrics.
type Counter interface {
	InvoiceIssued()
	PaymentApplied()
}

// Service handles invoice business logic.
type Service struct {
	logger      *slog.Logger
	repo        RepositoryPort
	dispatcher  Dispatcher
	invalidator Invalidator
	counter     Counter
}

// NewService builds Service instance. Dispatcher, invalidator and counter may
// be nil in tests.
func NewService(logger *slog.Logger, repo RepositoryPort, dispatcher Dispatcher, invalidator Invalidator, counter Counter) *Service {
	return &Service{logger: logger, repo: repo, dispatcher: dispatcher, invalidator: invalidator, counter: counter}
}

// CreateInvoice computes line amounts and aggregates, then persists a DRAFT.
func (s *Service) CreateInvoice(ctx context.Context, tenantID int64, req CreateInvoiceRequest) (*Invoice, error) {
	customer, err := s.repo.GetCustomerInfo(ctx, tenantID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	inv, err := s.buildInvoice(tenantID, customer, req)
	if err != nil {
		return nil, err
	}

	inv.Number, err = s.repo.NextInvoiceNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return nil, err
	}
	if s.counter != nil {
		s.counter.InvoiceIssued()
	}
	s.bump(ctx, tenantID)
	return created, nil
}

// UpdateInvoice replaces the lines and terms of a DRAFT invoice and
// recomputes all totals. Non-drafts are immutable.
func (s *Service) UpdateInvoice(ctx context.Context, tenantID, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	existing, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, ErrNotDraft
	}

	customer, err := s.repo.GetCustomerInfo(ctx, tenantID, existing.CustomerID)
	if err != nil {
		return nil, err
	}

	rebuilt, err := s.buildInvoice(tenantID, customer, CreateInvoiceRequest{
		CustomerID:       existing.CustomerID,
		PlaceOfSupply:    req.PlaceOfSupply,
		CustomerState:    req.CustomerState,
		IssueDate:        existing.IssueDate.Format(dateLayout),
		DueDate:          req.DueDate,
		PaymentTermsDays: req.PaymentTermsDays,
		Discount:         req.Discount,
		Lines:            req.Lines,
		Recurrence:       req.Recurrence,
	})
	if err != nil {
		return nil, err
	}
	rebuilt.ID = existing.ID
	rebuilt.Number = existing.Number
	rebuilt.CreatedAt = existing.CreatedAt

	updated, err := s.repo.ReplaceDraft(ctx, rebuilt)
	if err != nil {
		return nil, err
	}
	s.bump(ctx, tenantID)
	return updated, nil
}

// GetInvoice returns a single invoice with lines.
func (s *Service) GetInvoice(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, tenantID, id)
}

// ListInvoices returns invoices matching the filter.
func (s *Service) ListInvoices(ctx context.Context, tenantID int64, req ListInvoicesRequest) ([]Invoice, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.ListInvoices(ctx, tenantID, req)
}

// SendInvoice transitions DRAFT -> SENT and dispatches the customer e-mail.
func (s *Service) SendInvoice(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(inv.Status, StatusSent); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, tenantID, id, inv.Status, StatusSent, now); err != nil {
		return nil, err
	}
	inv.Status = StatusSent
	inv.SentAt = &now

	if s.dispatcher != nil {
		customer, err := s.repo.GetCustomerInfo(ctx, tenantID, inv.CustomerID)
		if err == nil && customer.Email != "" {
			email := InvoiceEmail{
				To:            customer.Email,
				CustomerName:  customer.Name,
				InvoiceNumber: inv.Number,
				Total:         inv.Total,
				DueDate:       inv.DueDate.Format(dateLayout),
				PaymentLink:   inv.PaymentLink,
			}
			if err := s.dispatcher.EnqueueInvoiceEmail(ctx, email); err != nil {
				s.logger.Warn("enqueue invoice email", slog.Any("error", err), slog.String("invoice", inv.Number))
			}
		}
	}

	s.bump(ctx, tenantID)
	return inv, nil
}

// MarkViewed transitions SENT -> VIEWED. Re-viewing is a no-op.
func (s *Service) MarkViewed(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusViewed {
		return inv, nil
	}
	if err := CanTransition(inv.Status, StatusViewed); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, tenantID, id, inv.Status, StatusViewed, now); err != nil {
		return nil, err
	}
	inv.Status = StatusViewed
	inv.ViewedAt = &now
	return inv, nil
}

// CancelInvoice transitions any non-terminal status to CANCELLED. Invoices
// are never hard-deleted once sent.
func (s *Service) CancelInvoice(ctx context.Context, tenantID, id int64, reason string) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(inv.Status, StatusCancelled); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.CancelInvoice(ctx, tenantID, id, reason, now); err != nil {
		return nil, err
	}
	inv.Status = StatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	s.bump(ctx, tenantID)
	return inv, nil
}

// DeleteInvoice removes a DRAFT. Anything past DRAFT must be cancelled instead.
func (s *Service) DeleteInvoice(ctx context.Context, tenantID, id int64) error {
	inv, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if inv.Status != StatusDraft {
		return ErrNotDraft
	}
	return s.repo.DeleteDraft(ctx, tenantID, id)
}

// ApplyPayment posts an amount against an open invoice. The overpayment guard
// rejects before any write; repeated partial payments summing to the total
// drive the balance to exactly zero and the status to PAID.
func (s *Service) ApplyPayment(ctx context.Context, tenantID, id int64, amount float64) (*Invoice, error) {
	if amount <= 0 {
		return nil, errors.New("billing: payment amount must be positive")
	}

	inv, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case StatusSent, StatusViewed, StatusPartiallyPaid:
	default:
		return nil, ErrNotPayable
	}
	if amount > inv.Balance {
		return nil, ErrOverpayment
	}

	paid := round2(inv.PaidAmount + amount)
	balance := round2(inv.Total - paid)
	status := StatusPartiallyPaid
	if balance == 0 {
		status = StatusPaid
	}
	if err := CanTransition(inv.Status, status); err != nil {
		return nil, err
	}

	if err := s.repo.ApplyPayment(ctx, tenantID, id, paid, balance, status); err != nil {
		return nil, err
	}
	inv.PaidAmount = paid
	inv.Balance = balance
	inv.Status = status
	if s.counter != nil {
		s.counter.PaymentApplied()
	}
	s.bump(ctx, tenantID)
	return inv, nil
}

// AttachPaymentLink records a gateway-generated payment link.
func (s *Service) AttachPaymentLink(ctx context.Context, tenantID, id int64, link string) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(inv.Status) {
		return nil, ErrNotPayable
	}
	if err := s.repo.SetPaymentLink(ctx, tenantID, id, link); err != nil {
		return nil, err
	}
	inv.PaymentLink = link
	return inv, nil
}

// RunRecurring materialises a new DRAFT for every recurrence rule that is due
// and advances its schedule. Returns the number of invoices issued.
func (s *Service) RunRecurring(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.repo.ListDueRecurrences(ctx, asOf)
	if err != nil {
		return 0, err
	}

	issued := 0
	for i := range due {
		tmpl := &due[i]
		next, err := s.issueFromTemplate(ctx, tmpl, asOf)
		if err != nil {
			s.logger.Error("issue recurring invoice",
				slog.Any("error", err), slog.String("template", tmpl.Number))
			continue
		}
		if err := s.repo.ScheduleNextRun(ctx, tmpl.ID, tmpl.Recurrence.Frequency.NextAfter(tmpl.Recurrence.NextRunAt)); err != nil {
			s.logger.Error("schedule next recurrence",
				slog.Any("error", err), slog.String("template", tmpl.Number))
			continue
		}
		issued++
		s.logger.Info("recurring invoice issued",
			slog.String("template", tmpl.Number), slog.String("invoice", next.Number))
	}
	return issued, nil
}

func (s *Service) issueFromTemplate(ctx context.Context, tmpl *Invoice, asOf time.Time) (*Invoice, error) {
	lines := make([]LineItem, 0, len(tmpl.Lines))
	for _, line := range tmpl.Lines {
		line.ID = 0
		lines = append(lines, CalculateLine(line, tmpl.PlaceOfSupply, tmpl.CustomerState))
	}
	totals := Aggregate(lines, tmpl.Discount)

	due := asOf
	if tmpl.PaymentTermsDays > 0 {
		due = asOf.AddDate(0, 0, tmpl.PaymentTermsDays)
	}

	inv := &Invoice{
		TenantID:         tmpl.TenantID,
		CustomerID:       tmpl.CustomerID,
		CustomerState:    tmpl.CustomerState,
		PlaceOfSupply:    tmpl.PlaceOfSupply,
		IssueDate:        asOf,
		DueDate:          due,
		PaymentTermsDays: tmpl.PaymentTermsDays,
		Lines:            lines,
		Subtotal:         totals.Subtotal,
		TaxAmount:        totals.TaxAmount,
		Discount:         tmpl.Discount,
		Total:            totals.Total,
		Balance:          totals.Total,
		Status:           StatusDraft,
	}

	var err error
	inv.Number, err = s.repo.NextInvoiceNumber(ctx, tmpl.TenantID)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return nil, err
	}
	if s.counter != nil {
		s.counter.InvoiceIssued()
	}
	return created, nil
}

func (s *Service) buildInvoice(tenantID int64, customer *CustomerInfo, req CreateInvoiceRequest) (*Invoice, error) {
	issueDate := time.Now().Truncate(24 * time.Hour)
	if req.IssueDate != "" {
		parsed, err := time.Parse(dateLayout, req.IssueDate)
		if err != nil {
			return nil, errors.New("billing: invalid issue_date")
		}
		issueDate = parsed
	}

	customerState := req.CustomerState
	if customerState == "" {
		customerState = customer.StateCode
	}

	var dueDate time.Time
	switch {
	case req.DueDate != "":
		parsed, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			return nil, errors.New("billing: invalid due_date")
		}
		dueDate = parsed
	case req.PaymentTermsDays > 0:
		dueDate = issueDate.AddDate(0, 0, req.PaymentTermsDays)
	}

	lines := make([]LineItem, 0, len(req.Lines))
	for _, lr := range req.Lines {
		mode := TaxMode(lr.TaxMode)
		if mode == "" {
			mode = TaxModePlain
		}
		lines = append(lines, CalculateLine(LineItem{
			Description: lr.Description,
			Quantity:    lr.Quantity,
			Rate:        lr.Rate,
			TaxMode:     mode,
			TaxRate:     lr.TaxRate,
			IGSTRate:    lr.IGSTRate,
			CGSTRate:    lr.CGSTRate,
			SGSTRate:    lr.SGSTRate,
		}, req.PlaceOfSupply, customerState))
	}
	totals := Aggregate(lines, req.Discount)

	inv := &Invoice{
		TenantID:         tenantID,
		CustomerID:       req.CustomerID,
		CustomerState:    customerState,
		PlaceOfSupply:    req.PlaceOfSupply,
		IssueDate:        issueDate,
		DueDate:          dueDate,
		PaymentTermsDays: req.PaymentTermsDays,
		Lines:            lines,
		Subtotal:         totals.Subtotal,
		TaxAmount:        totals.TaxAmount,
		Discount:         req.Discount,
		Total:            totals.Total,
		Balance:          totals.Total,
		Status:           StatusDraft,
	}

	if req.Recurrence != nil {
		nextRun, err := time.Parse(dateLayout, req.Recurrence.NextRunAt)
		if err != nil {
			return nil, errors.New("billing: invalid recurrence next_run_at")
		}
		inv.Recurrence = &RecurrenceRule{
			Frequency: Frequency(req.Recurrence.Frequency),
			NextRunAt: nextRun,
		}
	}
	return inv, nil
}

func (s *Service) bump(ctx context.Context, tenantID int64) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx, tenantID); err != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err), slog.Int64("tenant", tenantID))
	}
}
