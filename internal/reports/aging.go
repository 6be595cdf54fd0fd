package reports

import "time"

// OutstandingInvoice is the projection aging works over. Overdue-ness is
// derived from the due date against asOf; the stored status is never
// consulted beyond excluding PAID/CANCELLED/DRAFT upstream.
type OutstandingInvoice struct {
	ID         int64
	Number     string
	CustomerID int64
	DueDate    time.Time
	Balance    float64
}

// AgingBuckets summarises outstanding balances by days overdue.
type AgingBuckets struct {
	Current    float64 `json:"current"`
	Days30     float64 `json:"days_30"`
	Days60     float64 `json:"days_60"`
	Days90     float64 `json:"days_90"`
	Days90Plus float64 `json:"days_90_plus"`
}

// Total sums all buckets.
func (b AgingBuckets) Total() float64 {
	return b.Current + b.Days30 + b.Days60 + b.Days90 + b.Days90Plus
}

// BucketBalances groups outstanding balances by aging periods.
func BucketBalances(invoices []OutstandingInvoice, asOf time.Time) AgingBuckets {
	var buckets AgingBuckets
	for _, inv := range invoices {
		days := int(asOf.Sub(inv.DueDate).Hours() / 24)
		switch {
		case days <= 0:
			buckets.Current += inv.Balance
		case days <= 30:
			buckets.Days30 += inv.Balance
		case days <= 60:
			buckets.Days60 += inv.Balance
		case days <= 90:
			buckets.Days90 += inv.Balance
		default:
			buckets.Days90Plus += inv.Balance
		}
	}
	return buckets
}

// Summary carries headline receivable figures.
type Summary struct {
	TotalOutstanding float64 `json:"total_outstanding"`
	TotalOverdue     float64 `json:"total_overdue"`
	InvoiceCount     int     `json:"invoice_count"`
	OverdueCount     int     `json:"overdue_count"`
}

// Summarise computes headline figures from outstanding invoices.
func Summarise(invoices []OutstandingInvoice, asOf time.Time) Summary {
	var s Summary
	for _, inv := range invoices {
		s.TotalOutstanding += inv.Balance
		s.InvoiceCount++
		if !inv.DueDate.IsZero() && inv.DueDate.Before(asOf) {
			s.TotalOverdue += inv.Balance
			s.OverdueCount++
		}
	}
	return s
}
