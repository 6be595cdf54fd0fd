package billing

import "time"

const dateLayout = "2006-01-02"

// LineItemRequest is a client-supplied line. Amounts are always recomputed
// server-side.
type LineItemRequest struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	TaxMode     string  `json:"tax_mode" validate:"omitempty,oneof=PLAIN GST"`
	TaxRate     float64 `json:"tax_rate" validate:"gte=0"`
	IGSTRate    float64 `json:"igst_rate" validate:"gte=0"`
	CGSTRate    float64 `json:"cgst_rate" validate:"gte=0"`
	SGSTRate    float64 `json:"sgst_rate" validate:"gte=0"`
}

// RecurrenceRequest describes an optional recurrence rule.
type RecurrenceRequest struct {
	Frequency string `json:"frequency" validate:"required,oneof=WEEKLY MONTHLY QUARTERLY YEARLY"`
	NextRunAt string `json:"next_run_at" validate:"required"`
}

// CreateInvoiceRequest is the invoice creation payload.
type CreateInvoiceRequest struct {
	CustomerID       int64              `json:"customer_id" validate:"required,gt=0"`
	PlaceOfSupply    string             `json:"place_of_supply"`
	CustomerState    string             `json:"customer_state"`
	IssueDate        string             `json:"issue_date"`
	DueDate          string             `json:"due_date"`
	PaymentTermsDays int                `json:"payment_terms_days" validate:"gte=0"`
	Discount         float64            `json:"discount" validate:"gte=0"`
	Lines            []LineItemRequest  `json:"lines" validate:"required,min=1,dive"`
	Recurrence       *RecurrenceRequest `json:"recurrence"`
}

// UpdateInvoiceRequest replaces the mutable fields of a draft.
type UpdateInvoiceRequest struct {
	PlaceOfSupply    string             `json:"place_of_supply"`
	CustomerState    string             `json:"customer_state"`
	DueDate          string             `json:"due_date"`
	PaymentTermsDays int                `json:"payment_terms_days" validate:"gte=0"`
	Discount         float64            `json:"discount" validate:"gte=0"`
	Lines            []LineItemRequest  `json:"lines" validate:"required,min=1,dive"`
	Recurrence       *RecurrenceRequest `json:"recurrence"`
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	Status     InvoiceStatus
	CustomerID int64
	FromDate   time.Time
	ToDate     time.Time
	Limit      int
	Offset     int
}

// CancelInvoiceRequest carries the cancellation reason.
type CancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

// LineItemResponse mirrors a computed line item.
type LineItemResponse struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	TaxMode     string  `json:"tax_mode"`
	TaxRate     float64 `json:"tax_rate,omitempty"`
	IGSTRate    float64 `json:"igst_rate,omitempty"`
	CGSTRate    float64 `json:"cgst_rate,omitempty"`
	SGSTRate    float64 `json:"sgst_rate,omitempty"`
	Amount      float64 `json:"amount"`
	IGSTAmount  float64 `json:"igst_amount,omitempty"`
	CGSTAmount  float64 `json:"cgst_amount,omitempty"`
	SGSTAmount  float64 `json:"sgst_amount,omitempty"`
	TaxAmount   float64 `json:"tax_amount"`
	Total       float64 `json:"total"`
}

// RecurrenceResponse mirrors a recurrence rule.
type RecurrenceResponse struct {
	Frequency string `json:"frequency"`
	NextRunAt string `json:"next_run_at"`
}

// InvoiceResponse is the JSON shape of an invoice.
type InvoiceResponse struct {
	ID               int64               `json:"id"`
	Number           string              `json:"number"`
	CustomerID       int64               `json:"customer_id"`
	CustomerState    string              `json:"customer_state,omitempty"`
	PlaceOfSupply    string              `json:"place_of_supply,omitempty"`
	IssueDate        string              `json:"issue_date"`
	DueDate          string              `json:"due_date,omitempty"`
	PaymentTermsDays int                 `json:"payment_terms_days,omitempty"`
	Lines            []LineItemResponse  `json:"lines"`
	Subtotal         float64             `json:"subtotal"`
	TaxAmount        float64             `json:"tax_amount"`
	Discount         float64             `json:"discount"`
	Total            float64             `json:"total"`
	PaidAmount       float64             `json:"paid_amount"`
	Balance          float64             `json:"balance"`
	Status           string              `json:"status"`
	Overdue          bool                `json:"overdue"`
	Recurrence       *RecurrenceResponse `json:"recurrence,omitempty"`
	PaymentLink      string              `json:"payment_link,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewInvoiceResponse converts a domain invoice for serialisation.
func NewInvoiceResponse(inv *Invoice, now time.Time) InvoiceResponse {
	resp := InvoiceResponse{
		ID:               inv.ID,
		Number:           inv.Number,
		CustomerID:       inv.CustomerID,
		CustomerState:    inv.CustomerState,
		PlaceOfSupply:    inv.PlaceOfSupply,
		IssueDate:        inv.IssueDate.Format(dateLayout),
		PaymentTermsDays: inv.PaymentTermsDays,
		Subtotal:         inv.Subtotal,
		TaxAmount:        inv.TaxAmount,
		Discount:         inv.Discount,
		Total:            inv.Total,
		PaidAmount:       inv.PaidAmount,
		Balance:          inv.Balance,
		Status:           string(inv.Status),
		Overdue:          inv.Overdue(now),
		PaymentLink:      inv.PaymentLink,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
	if !inv.DueDate.IsZero() {
		resp.DueDate = inv.DueDate.Format(dateLayout)
	}
	if inv.Recurrence != nil {
		resp.Recurrence = &RecurrenceResponse{
			Frequency: string(inv.Recurrence.Frequency),
			NextRunAt: inv.Recurrence.NextRunAt.Format(dateLayout),
		}
	}
	resp.Lines = make([]LineItemResponse, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		resp.Lines = append(resp.Lines, LineItemResponse{
			ID:          line.ID,
			Description: line.Description,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			TaxMode:     string(line.TaxMode),
			TaxRate:     line.TaxRate,
			IGSTRate:    line.IGSTRate,
			CGSTRate:    line.CGSTRate,
			SGSTRate:    line.SGSTRate,
			Amount:      line.Amount,
			IGSTAmount:  line.IGSTAmount,
			CGSTAmount:  line.CGSTAmount,
			SGSTAmount:  line.SGSTAmount,
			TaxAmount:   line.TaxAmount,
			Total:       line.Total,
		})
	}
	return resp
}
