package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// LinkRequest describes the invoice a payment link is generated for.
type LinkRequest struct {
	InvoiceNumber string
	Amount        float64
}

// LinkGenerator produces an external payment link. The gateway protocol is
// out of scope; only the resulting link string is recorded.
type LinkGenerator interface {
	PaymentLink(ctx context.Context, req LinkRequest) (string, error)
}

// HostedLinkGenerator builds opaque links under a configured base URL.
type HostedLinkGenerator struct {
	baseURL string
}

// NewHostedLinkGenerator constructs a generator.
func NewHostedLinkGenerator(baseURL string) *HostedLinkGenerator {
	return &HostedLinkGenerator{baseURL: strings.TrimRight(baseURL, "/")}
}

// PaymentLink returns a fresh link for the invoice.
func (g *HostedLinkGenerator) PaymentLink(ctx context.Context, req LinkRequest) (string, error) {
	return g.baseURL + "/pay/" + uuid.NewString(), nil
}
