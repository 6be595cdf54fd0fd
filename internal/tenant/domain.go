package tenant

import "time"

// Tenant is a billing organisation. Every invoice, payment and report is
// scoped to exactly one tenant.
type Tenant struct {
	ID        int64
	Name      string
	GSTIN     string
	StateCode string
	KeyID     string
	KeyHash   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateTenantInput for provisioning a tenant.
type CreateTenantInput struct {
	Name      string
	GSTIN     string
	StateCode string
}

// Credentials carries the one-time plaintext API key returned at signup.
type Credentials struct {
	Tenant Tenant
	APIKey string
}
