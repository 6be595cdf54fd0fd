package billing

import (
	"time"
)

// InvoiceStatus enumerates invoice lifecycle states. OVERDUE is deliberately
// absent: it is derived from the due date at read time, never stored.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "DRAFT"
	StatusSent          InvoiceStatus = "SENT"
	StatusViewed        InvoiceStatus = "VIEWED"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
	StatusCancelled     InvoiceStatus = "CANCELLED"
)

// TaxMode selects how a line item is taxed.
type TaxMode string

const (
	// TaxModePlain applies a single percentage tax rate.
	TaxModePlain TaxMode = "PLAIN"
	// TaxModeGST splits tax into IGST (interstate) or CGST+SGST (intrastate),
	// keyed on place of supply versus customer state.
	TaxModeGST TaxMode = "GST"
)

// LineItem is embedded in an invoice; it has no independent identity outside
// its parent. Amount, tax amounts and total are computed, never client-supplied.
type LineItem struct {
	ID          int64
	Description string
	Quantity    float64
	Rate        float64
	TaxMode     TaxMode
	TaxRate     float64
	IGSTRate    float64
	CGSTRate    float64
	SGSTRate    float64
	Amount      float64
	IGSTAmount  float64
	CGSTAmount  float64
	SGSTAmount  float64
	TaxAmount   float64
	Total       float64
}

// RecurrenceRule schedules automatic re-issue of an invoice.
type RecurrenceRule struct {
	Frequency Frequency
	NextRunAt time.Time
}

// Frequency of a recurrence rule.
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// NextAfter returns the run date following from.
func (f Frequency) NextAfter(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Invoice model. Invariants: Total == Subtotal + TaxAmount - Discount and
// Balance == Total - PaidAmount.
type Invoice struct {
	ID               int64
	TenantID         int64
	Number           string
	CustomerID       int64
	CustomerState    string
	PlaceOfSupply    string
	IssueDate        time.Time
	DueDate          time.Time
	PaymentTermsDays int
	Lines            []LineItem
	Subtotal         float64
	TaxAmount        float64
	Discount         float64
	Total            float64
	PaidAmount       float64
	Balance          float64
	Status           InvoiceStatus
	Recurrence       *RecurrenceRule
	PaymentLink      string
	SentAt           *time.Time
	ViewedAt         *time.Time
	CancelledAt      *time.Time
	CancelReason     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Overdue reports whether the invoice is past due as of the given instant.
// PAID and CANCELLED invoices are never overdue; drafts have no due semantics.
func (inv *Invoice) Overdue(asOf time.Time) bool {
	switch inv.Status {
	case StatusDraft, StatusPaid, StatusCancelled:
		return false
	}
	return !inv.DueDate.IsZero() && inv.DueDate.Before(asOf)
}
