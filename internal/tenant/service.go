package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "ldg"

// ErrInvalidKey indicates the presented API key failed authentication.
var ErrInvalidKey = errors.New("tenant: invalid API key")

// RepositoryPort defines data access methods for tenants.
type RepositoryPort interface {
	Create(ctx context.Context, t Tenant) (*Tenant, error)
	GetByKeyID(ctx context.Context, keyID string) (*Tenant, error)
	Get(ctx context.Context, id int64) (*Tenant, error)
}

// Service handles tenant provisioning and API key authentication.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create provisions a tenant and issues its API key. The plaintext key is
// returned exactly once; only the bcrypt hash is stored.
func (s *Service) Create(ctx context.Context, input CreateTenantInput) (*Credentials, error) {
	if input.Name == "" {
		return nil, errors.New("tenant: name required")
	}

	keyID := uuid.NewString()[:8]
	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, Tenant{
		Name:      input.Name,
		GSTIN:     input.GSTIN,
		StateCode: input.StateCode,
		KeyID:     keyID,
		KeyHash:   string(hash),
	})
	if err != nil {
		return nil, err
	}

	return &Credentials{
		Tenant: *created,
		APIKey: keyPrefix + "_" + keyID + "_" + secret,
	}, nil
}

// Authenticate resolves a tenant from a presented API key.
func (s *Service) Authenticate(ctx context.Context, presented string) (*Tenant, error) {
	parts := strings.SplitN(presented, "_", 3)
	if len(parts) != 3 || parts[0] != keyPrefix {
		return nil, ErrInvalidKey
	}

	t, err := s.repo.GetByKeyID(ctx, parts[1])
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(t.KeyHash), []byte(parts[2])) != nil {
		return nil, ErrInvalidKey
	}
	return t, nil
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id int64) (*Tenant, error) {
	return s.repo.Get(ctx, id)
}
