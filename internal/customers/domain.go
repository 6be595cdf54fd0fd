package customers

import "time"

// Customer is a billable party belonging to one tenant. StateCode feeds the
// GST interstate/intrastate decision when an invoice omits it.
type Customer struct {
	ID        int64
	TenantID  int64
	Name      string
	Email     string
	Phone     string
	GSTIN     string
	StateCode string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerRequest is the create/update payload.
type CustomerRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	GSTIN     string `json:"gstin"`
	StateCode string `json:"state_code"`
	Address   string `json:"address"`
}

// CustomerResponse is the JSON shape of a customer.
type CustomerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	GSTIN     string    `json:"gstin,omitempty"`
	StateCode string    `json:"state_code,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCustomerResponse converts a domain customer for serialisation.
func NewCustomerResponse(c *Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		GSTIN:     c.GSTIN,
		StateCode: c.StateCode,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
