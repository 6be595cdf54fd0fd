package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrequencyNextAfter(t *testing.T) {
	from := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	require.Equal(t, time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC), FrequencyWeekly.NextAfter(from))
	require.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), FrequencyMonthly.NextAfter(from))
	require.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), FrequencyQuarterly.NextAfter(from))
	require.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), FrequencyYearly.NextAfter(from))
}

func TestInvoiceOverdue(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	past := asOf.AddDate(0, 0, -5)
	future := asOf.AddDate(0, 0, 5)

	require.True(t, (&Invoice{Status: StatusSent, DueDate: past}).Overdue(asOf))
	require.True(t, (&Invoice{Status: StatusPartiallyPaid, DueDate: past}).Overdue(asOf))
	require.False(t, (&Invoice{Status: StatusSent, DueDate: future}).Overdue(asOf))
	require.False(t, (&Invoice{Status: StatusPaid, DueDate: past}).Overdue(asOf))
	require.False(t, (&Invoice{Status: StatusCancelled, DueDate: past}).Overdue(asOf))
	require.False(t, (&Invoice{Status: StatusDraft, DueDate: past}).Overdue(asOf))
	require.False(t, (&Invoice{Status: StatusSent}).Overdue(asOf))
}
