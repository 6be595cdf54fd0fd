package tenant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the tenant does not exist.
var ErrNotFound = errors.New("tenant: not found")

// ErrDuplicateName indicates the tenant name is already registered.
var ErrDuplicateName = errors.New("tenant: name already registered")

// Repository provides PostgreSQL backed persistence for tenants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a tenant row.
func (r *Repository) Create(ctx context.Context, t Tenant) (*Tenant, error) {
	query := `
		INSERT INTO tenants (name, gstin, state_code, key_id, key_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, t.Name, t.GSTIN, t.StateCode, t.KeyID, t.KeyHash).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return &t, nil
}

// GetByKeyID looks a tenant up by the public half of its API key.
func (r *Repository) GetByKeyID(ctx context.Context, keyID string) (*Tenant, error) {
	query := `
		SELECT id, name, gstin, state_code, key_id, key_hash, created_at, updated_at
		FROM tenants
		WHERE key_id = $1`

	var t Tenant
	err := r.pool.QueryRow(ctx, query, keyID).Scan(
		&t.ID, &t.Name, &t.GSTIN, &t.StateCode, &t.KeyID, &t.KeyHash, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get retrieves a tenant by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Tenant, error) {
	query := `
		SELECT id, name, gstin, state_code, key_id, key_hash, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	var t Tenant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.GSTIN, &t.StateCode, &t.KeyID, &t.KeyHash, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
