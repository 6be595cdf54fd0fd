package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerly-in/ledgerly/internal/billing"
	"github.com/ledgerly-in/ledgerly/internal/shared"
)

// ErrDuplicatePayment indicates an idempotency key replay.
var ErrDuplicatePayment = errors.New("payments: duplicate idempotency key")

// Ledger is the slice of billing the payments module drives.
type Ledger interface {
	GetInvoice(ctx context.Context, tenantID, id int64) (*billing.Invoice, error)
	ApplyPayment(ctx context.Context, tenantID, id int64, amount float64) (*billing.Invoice, error)
	AttachPaymentLink(ctx context.Context, tenantID, id int64, link string) (*billing.Invoice, error)
}

// RepositoryPort defines data access methods for payments.
type RepositoryPort interface {
	Create(ctx context.Context, p Payment) (*Payment, error)
	UpdateStatus(ctx context.Context, tenantID, id int64, status PaymentStatus) error
	Get(ctx context.Context, tenantID, id int64) (*Payment, error)
	List(ctx context.Context, tenantID, invoiceID int64, limit, offset int) ([]Payment, error)
	NextPaymentNumber(ctx context.Context, tenantID int64) (string, error)
}

// IdempotencyPort deduplicates payment postings.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, tenantID int64, key, module string) error
	Delete(ctx context.Context, tenantID int64, key string) error
}

const idempotencyModule = "payments"

// Service handles payment business logic.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	ledger Ledger
	idem   IdempotencyPort
	links  LinkGenerator
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, ledger Ledger, idem IdempotencyPort, links LinkGenerator) *Service {
	return &Service{logger: logger, repo: repo, ledger: ledger, idem: idem, links: links}
}

// Record posts a payment against an invoice. The idempotency key is claimed
// first, so a replayed request is rejected before touching the balance. The
// invoice write and the payment row are separate persistence writes; when the
// balance update fails the payment is marked FAILED and the key released.
func (s *Service) Record(ctx context.Context, tenantID int64, req RecordPaymentRequest) (*Payment, *billing.Invoice, error) {
	if err := s.idem.CheckAndInsert(ctx, tenantID, req.IdempotencyKey, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return nil, nil, ErrDuplicatePayment
		}
		return nil, nil, err
	}

	inv, err := s.ledger.GetInvoice(ctx, tenantID, req.InvoiceID)
	if err != nil {
		s.releaseKey(ctx, tenantID, req.IdempotencyKey)
		return nil, nil, err
	}
	if req.Amount > inv.Balance {
		s.releaseKey(ctx, tenantID, req.IdempotencyKey)
		return nil, nil, billing.ErrOverpayment
	}

	paidAt := time.Now()
	if req.PaidAt != "" {
		parsed, err := time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			s.releaseKey(ctx, tenantID, req.IdempotencyKey)
			return nil, nil, errors.New("payments: invalid paid_at")
		}
		paidAt = parsed
	}

	number, err := s.repo.NextPaymentNumber(ctx, tenantID)
	if err != nil {
		s.releaseKey(ctx, tenantID, req.IdempotencyKey)
		return nil, nil, err
	}

	txnID := req.TransactionID
	if txnID == "" {
		txnID = uuid.NewString()
	}

	payment, err := s.repo.Create(ctx, Payment{
		TenantID:       tenantID,
		InvoiceID:      req.InvoiceID,
		Number:         number,
		Amount:         req.Amount,
		Method:         req.Method,
		TransactionID:  txnID,
		PaidAt:         paidAt,
		Status:         StatusPending,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		s.releaseKey(ctx, tenantID, req.IdempotencyKey)
		return nil, nil, err
	}

	inv, err = s.ledger.ApplyPayment(ctx, tenantID, req.InvoiceID, req.Amount)
	if err != nil {
		if uerr := s.repo.UpdateStatus(ctx, tenantID, payment.ID, StatusFailed); uerr != nil {
			s.logger.Error("mark payment failed", slog.Any("error", uerr), slog.Int64("payment", payment.ID))
		}
		s.releaseKey(ctx, tenantID, req.IdempotencyKey)
		return nil, nil, err
	}

	if err := s.repo.UpdateStatus(ctx, tenantID, payment.ID, StatusCompleted); err != nil {
		s.logger.Error("mark payment completed", slog.Any("error", err), slog.Int64("payment", payment.ID))
	}
	payment.Status = StatusCompleted
	return payment, inv, nil
}

// Get returns a payment by id.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*Payment, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns payments, optionally filtered by invoice.
func (s *Service) List(ctx context.Context, tenantID, invoiceID int64, limit, offset int) ([]Payment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, tenantID, invoiceID, limit, offset)
}

// GeneratePaymentLink asks the gateway for a link and records it on the
// invoice.
func (s *Service) GeneratePaymentLink(ctx context.Context, tenantID, invoiceID int64) (*billing.Invoice, error) {
	inv, err := s.ledger.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	link, err := s.links.PaymentLink(ctx, LinkRequest{
		InvoiceNumber: inv.Number,
		Amount:        inv.Balance,
	})
	if err != nil {
		return nil, err
	}
	return s.ledger.AttachPaymentLink(ctx, tenantID, invoiceID, link)
}

func (s *Service) releaseKey(ctx context.Context, tenantID int64, key string) {
	if err := s.idem.Delete(ctx, tenantID, key); err != nil {
		s.logger.Error("release idempotency key", slog.Any("error", err), slog.String("key", key))
	}
}
