package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the customer does not exist for this tenant.
var ErrNotFound = errors.New("customers: not found")

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a customer row.
func (r *Repository) Create(ctx context.Context, c Customer) (*Customer, error) {
	query := `
		INSERT INTO customers (tenant_id, name, email, phone, gstin, state_code, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		c.TenantID, c.Name, c.Email, c.Phone, c.GSTIN, c.StateCode, c.Address,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Get retrieves a customer scoped to the tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Customer, error) {
	query := `
		SELECT id, tenant_id, name, email, phone, gstin, state_code, address, created_at, updated_at
		FROM customers
		WHERE tenant_id = $1 AND id = $2`

	var c Customer
	err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.GSTIN, &c.StateCode, &c.Address,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all customers for a tenant.
func (r *Repository) List(ctx context.Context, tenantID int64, limit, offset int) ([]Customer, error) {
	query := `
		SELECT id, tenant_id, name, email, phone, gstin, state_code, address, created_at, updated_at
		FROM customers
		WHERE tenant_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		err := rows.Scan(
			&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.GSTIN, &c.StateCode, &c.Address,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of a customer.
func (r *Repository) Update(ctx context.Context, c Customer) (*Customer, error) {
	query := `
		UPDATE customers
		SET name = $3, email = $4, phone = $5, gstin = $6, state_code = $7, address = $8, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		c.TenantID, c.ID, c.Name, c.Email, c.Phone, c.GSTIN, c.StateCode, c.Address,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
