package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		months int
		want   string
	}{
		{"plain", "2025-01-15", 6, "2025-07-15"},
		{"single month", "2025-01-01", 1, "2025-02-01"},
		{"year rollover", "2024-11-20", 3, "2025-02-20"},
		{"clamp jan 31 to feb 28", "2025-01-31", 1, "2025-02-28"},
		{"clamp into leap feb", "2024-01-31", 1, "2024-02-29"},
		{"clamp may 31 to jun 30", "2025-05-31", 1, "2025-06-30"},
		{"twelve months", "2025-03-10", 12, "2026-03-10"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, err := time.Parse("2006-01-02", tc.start)
			require.NoError(t, err)
			want, err := time.Parse("2006-01-02", tc.want)
			require.NoError(t, err)

			require.Equal(t, want, AddMonths(start, tc.months))
		})
	}
}

func TestAddMonthsKeepsClock(t *testing.T) {
	start := time.Date(2025, 1, 15, 9, 30, 45, 0, time.UTC)
	got := AddMonths(start, 2)
	require.Equal(t, time.Date(2025, 3, 15, 9, 30, 45, 0, time.UTC), got)
}

func TestAddGrantsDeduplicates(t *testing.T) {
	lic := &License{
		Features: []string{"design_basic", "marketplace_access"},
		Modules:  []string{"dashboard"},
	}

	lic.AddGrants([]string{"api_access", "design_basic", "api_access"}, []string{"analytics", "dashboard"})

	require.Equal(t, []string{"design_basic", "marketplace_access", "api_access"}, lic.Features)
	require.Equal(t, []string{"dashboard", "analytics"}, lic.Modules)

	// Re-applying the same grant changes nothing.
	lic.AddGrants([]string{"api_access"}, []string{"analytics"})
	require.Len(t, lic.Features, 3)
	require.Len(t, lic.Modules, 2)
}

func TestAppendTransactionIsAppendOnly(t *testing.T) {
	lic := &License{}
	first := Transaction{Amount: 594, Type: TransactionCharge, Description: "initial"}
	second := Transaction{Amount: 99, Type: TransactionCharge, Description: "renewal"}

	lic.AppendTransaction(first)
	lic.AppendTransaction(second)

	require.Len(t, lic.TransactionHistory, 2)
	require.Equal(t, "initial", lic.TransactionHistory[0].Description)
	require.Equal(t, "renewal", lic.TransactionHistory[1].Description)
}
