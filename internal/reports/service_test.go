package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryReportsRepo struct {
	invoices map[int64][]OutstandingInvoice
	queries  int
}

func (r *memoryReportsRepo) ListOutstanding(ctx context.Context, tenantID int64) ([]OutstandingInvoice, error) {
	r.queries++
	return r.invoices[tenantID], nil
}

func TestAgingWithoutCache(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	repo := &memoryReportsRepo{invoices: map[int64][]OutstandingInvoice{
		1: {
			{Balance: 100, DueDate: asOf.AddDate(0, 0, 10)},
			{Balance: 200, DueDate: asOf.AddDate(0, 0, -10)},
		},
	}}
	svc := NewService(repo, nil)

	buckets, err := svc.Aging(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Equal(t, 100.0, buckets.Current)
	require.Equal(t, 200.0, buckets.Days30)
}

func TestAgingServedFromCache(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	repo := &memoryReportsRepo{invoices: map[int64][]OutstandingInvoice{
		1: {{Balance: 500, DueDate: asOf.AddDate(0, 0, -5)}},
	}}
	svc := NewService(repo, newTestCache(t))

	first, err := svc.Aging(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Equal(t, 500.0, first.Days30)

	second, err := svc.Aging(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.queries)
}

func TestAgingCacheKeyedByAsOf(t *testing.T) {
	dueDate := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &memoryReportsRepo{invoices: map[int64][]OutstandingInvoice{
		1: {{Balance: 100, DueDate: dueDate}},
	}}
	svc := NewService(repo, newTestCache(t))

	after, err := svc.Aging(context.Background(), 1, dueDate.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Equal(t, 100.0, after.Days30)

	// An earlier as_of must not be served the later date's buckets: the
	// invoice was not yet due on 2026-07-01.
	before, err := svc.Aging(context.Background(), 1, dueDate.AddDate(0, -1, 0))
	require.NoError(t, err)
	require.Equal(t, 100.0, before.Current)
	require.Equal(t, 0.0, before.Days30)
	require.Equal(t, 2, repo.queries)
}

func TestOverviewBypassesCache(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	repo := &memoryReportsRepo{invoices: map[int64][]OutstandingInvoice{
		1: {
			{Balance: 300, DueDate: asOf.AddDate(0, 0, -1)},
			{Balance: 700, DueDate: asOf.AddDate(0, 0, 1)},
		},
	}}
	svc := NewService(repo, nil)

	summary, err := svc.Overview(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Equal(t, 1000.0, summary.TotalOutstanding)
	require.Equal(t, 300.0, summary.TotalOverdue)
	require.Equal(t, 2, summary.InvoiceCount)
	require.Equal(t, 1, summary.OverdueCount)
}
