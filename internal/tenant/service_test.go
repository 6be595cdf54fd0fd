package tenant

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryTenantRepo struct {
	tenants map[string]*Tenant
	nextID  int64
}

func newMemoryTenantRepo() *memoryTenantRepo {
	return &memoryTenantRepo{tenants: make(map[string]*Tenant)}
}

func (r *memoryTenantRepo) Create(ctx context.Context, t Tenant) (*Tenant, error) {
	for _, existing := range r.tenants {
		if existing.Name == t.Name {
			return nil, ErrDuplicateName
		}
	}
	r.nextID++
	t.ID = r.nextID
	r.tenants[t.KeyID] = &t
	clone := t
	return &clone, nil
}

func (r *memoryTenantRepo) GetByKeyID(ctx context.Context, keyID string) (*Tenant, error) {
	t, ok := r.tenants[keyID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memoryTenantRepo) Get(ctx context.Context, id int64) (*Tenant, error) {
	for _, t := range r.tenants {
		if t.ID == id {
			clone := *t
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func TestCreateIssuesUsableKey(t *testing.T) {
	svc := NewService(newMemoryTenantRepo())

	creds, err := svc.Create(context.Background(), CreateTenantInput{
		Name:      "Acme Traders",
		GSTIN:     "27AAACA1234A1Z5",
		StateCode: "27",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(creds.APIKey, "ldg_"))
	require.NotContains(t, creds.Tenant.KeyHash, creds.APIKey)

	authed, err := svc.Authenticate(context.Background(), creds.APIKey)
	require.NoError(t, err)
	require.Equal(t, creds.Tenant.ID, authed.ID)
	require.Equal(t, "27", authed.StateCode)
}

func TestAuthenticateRejectsBadKeys(t *testing.T) {
	svc := NewService(newMemoryTenantRepo())

	creds, err := svc.Create(context.Background(), CreateTenantInput{Name: "Acme Traders"})
	require.NoError(t, err)

	cases := []string{
		"",
		"not-a-key",
		"ldg_unknown_secret",
		creds.APIKey + "x",
		strings.Replace(creds.APIKey, "ldg_", "bad_", 1),
	}
	for _, key := range cases {
		_, err := svc.Authenticate(context.Background(), key)
		require.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := NewService(newMemoryTenantRepo())

	_, err := svc.Create(context.Background(), CreateTenantInput{Name: "Acme Traders"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateTenantInput{Name: "Acme Traders"})
	require.ErrorIs(t, err, ErrDuplicateName)
}
