package license

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatusExpiresActiveAndTrial(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, status := range []Status{StatusActive, StatusTrial} {
		lic := &License{
			Status:    status,
			ExpiresAt: sql.NullTime{Time: expiry, Valid: true},
		}

		require.Equal(t, status, DeriveStatus(lic, expiry.Add(-time.Hour)))
		require.Equal(t, status, DeriveStatus(lic, expiry), "expiry instant itself is not yet expired")
		require.Equal(t, StatusExpired, DeriveStatus(lic, expiry.Add(time.Second)))
	}
}

func TestDeriveStatusLeavesOtherStatusesAlone(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	longPast := expiry.AddDate(1, 0, 0)

	for _, status := range []Status{StatusSuspended, StatusCancelled, StatusExpired} {
		lic := &License{
			Status:    status,
			ExpiresAt: sql.NullTime{Time: expiry, Valid: true},
		}
		require.Equal(t, status, DeriveStatus(lic, longPast), "a %s license never re-derives", status)
	}
}

func TestDeriveStatusWithoutExpiry(t *testing.T) {
	lic := &License{Status: StatusActive}
	require.Equal(t, StatusActive, DeriveStatus(lic, time.Now()))
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(StatusActive, StatusSuspended))
	require.True(t, CanTransition(StatusActive, StatusCancelled))
	require.True(t, CanTransition(StatusTrial, StatusActive))
	require.True(t, CanTransition(StatusSuspended, StatusActive))
	require.True(t, CanTransition(StatusExpired, StatusActive))

	require.False(t, CanTransition(StatusCancelled, StatusActive), "cancelled is terminal")
	require.False(t, CanTransition(StatusCancelled, StatusSuspended))
	require.False(t, CanTransition(StatusExpired, StatusSuspended))
	require.False(t, CanTransition(StatusActive, StatusActive))
}
