package billing

import "math"

// Monetary values are rounded to 2 decimals, half away from zero, at the line
// level. Aggregates are sums of already-rounded lines, so the invoice
// invariants hold exactly.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateLine fills the computed fields of a line item. Pure; inputs are
// assumed validated at the API boundary.
//
// GST mode: interstate supply (placeOfSupply != customerState) attracts IGST
// only; intrastate attracts CGST+SGST only. Exactly one branch produces a
// nonzero tax component.
func CalculateLine(line LineItem, placeOfSupply, customerState string) LineItem {
	line.Amount = round2(line.Quantity * line.Rate)

	switch line.TaxMode {
	case TaxModeGST:
		if placeOfSupply != customerState {
			line.IGSTAmount = round2(line.Amount * line.IGSTRate / 100)
			line.CGSTAmount = 0
			line.SGSTAmount = 0
		} else {
			line.CGSTAmount = round2(line.Amount * line.CGSTRate / 100)
			line.SGSTAmount = round2(line.Amount * line.SGSTRate / 100)
			line.IGSTAmount = 0
		}
		line.TaxAmount = round2(line.IGSTAmount + line.CGSTAmount + line.SGSTAmount)
	default:
		line.TaxAmount = round2(line.Amount * line.TaxRate / 100)
	}

	line.Total = round2(line.Amount + line.TaxAmount)
	return line
}

// Totals aggregates computed line items.
type Totals struct {
	Subtotal  float64
	TaxAmount float64
	Total     float64
}

// Aggregate sums computed lines and applies the invoice-level discount.
// Deterministic given identical lines.
func Aggregate(lines []LineItem, discount float64) Totals {
	var t Totals
	for _, line := range lines {
		t.Subtotal += line.Amount
		t.TaxAmount += line.TaxAmount
	}
	t.Subtotal = round2(t.Subtotal)
	t.TaxAmount = round2(t.TaxAmount)
	t.Total = round2(t.Subtotal + t.TaxAmount - discount)
	return t
}
