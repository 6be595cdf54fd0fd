package billing

import "fmt"

// TransitionError describes a rejected status transition.
type TransitionError struct {
	From InvoiceStatus
	To   InvoiceStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("billing: invalid transition %s -> %s", e.From, e.To)
}

// transitions is the authoritative table of allowed status changes. Payments
// drive SENT/VIEWED/PARTIALLY_PAID toward PAID; a draft can never jump
// straight to PAID.
var transitions = map[InvoiceStatus]map[InvoiceStatus]bool{
	StatusDraft: {
		StatusSent:      true,
		StatusCancelled: true,
	},
	StatusSent: {
		StatusViewed:        true,
		StatusPartiallyPaid: true,
		StatusPaid:          true,
		StatusCancelled:     true,
	},
	StatusViewed: {
		StatusPartiallyPaid: true,
		StatusPaid:          true,
		StatusCancelled:     true,
	},
	StatusPartiallyPaid: {
		StatusPartiallyPaid: true,
		StatusPaid:          true,
		StatusCancelled:     true,
	},
}

// CanTransition returns nil when from -> to is allowed, otherwise a typed
// *TransitionError carrying both states.
func CanTransition(from, to InvoiceStatus) error {
	if transitions[from][to] {
		return nil
	}
	return &TransitionError{From: from, To: to}
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(s InvoiceStatus) bool {
	return s == StatusPaid || s == StatusCancelled
}
