package payments

import "time"

// PaymentStatus enumerates payment states.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment model. Many payments may apply to one invoice; partial payments sum
// toward the invoice total.
type Payment struct {
	ID             int64
	TenantID       int64
	InvoiceID      int64
	Number         string
	Amount         float64
	Method         string
	TransactionID  string
	PaidAt         time.Time
	Status         PaymentStatus
	Note           string
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecordPaymentRequest is the payment posting payload. The idempotency key is
// mandatory: re-posting the same key is rejected before any balance mutation.
type RecordPaymentRequest struct {
	InvoiceID      int64   `json:"invoice_id" validate:"required,gt=0"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	Method         string  `json:"method" validate:"required,oneof=cash card upi netbanking transfer cheque"`
	TransactionID  string  `json:"transaction_id"`
	PaidAt         string  `json:"paid_at"`
	Note           string  `json:"note"`
	IdempotencyKey string  `json:"idempotency_key" validate:"required"`
}

// PaymentResponse is the JSON shape of a payment.
type PaymentResponse struct {
	ID            int64     `json:"id"`
	InvoiceID     int64     `json:"invoice_id"`
	Number        string    `json:"number"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
	Status        string    `json:"status"`
	Note          string    `json:"note,omitempty"`
	InvoiceStatus string    `json:"invoice_status,omitempty"`
	Balance       float64   `json:"invoice_balance"`
	CreatedAt     time.Time `json:"created_at"`
}
