package reports

import (
	"context"
	"time"
)

// RepositoryPort defines data access methods for reports.
type RepositoryPort interface {
	ListOutstanding(ctx context.Context, tenantID int64) ([]OutstandingInvoice, error)
}

// Service computes receivable reports with a read-through cache.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds Service instance. Cache may be nil in tests.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Aging returns the aging buckets for a tenant as of the given instant.
func (s *Service) Aging(ctx context.Context, tenantID int64, asOf time.Time) (AgingBuckets, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	var buckets AgingBuckets
	loader := func(ctx context.Context) (any, error) {
		invoices, err := s.repo.ListOutstanding(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return BucketBalances(invoices, asOf), nil
	}

	if s.cache == nil {
		invoices, err := s.repo.ListOutstanding(ctx, tenantID)
		if err != nil {
			return AgingBuckets{}, err
		}
		return BucketBalances(invoices, asOf), nil
	}

	// The buckets depend on asOf, so each report date gets its own key.
	key, err := s.cache.BuildKey(ctx, tenantID, "aging:"+asOf.Format("2006-01-02"))
	if err != nil {
		return AgingBuckets{}, err
	}
	if err := s.cache.FetchJSON(ctx, key, &buckets, loader); err != nil {
		return AgingBuckets{}, err
	}
	return buckets, nil
}

// Overview returns headline receivable figures for a tenant.
func (s *Service) Overview(ctx context.Context, tenantID int64, asOf time.Time) (Summary, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	invoices, err := s.repo.ListOutstanding(ctx, tenantID)
	if err != nil {
		return Summary{}, err
	}
	return Summarise(invoices, asOf), nil
}
