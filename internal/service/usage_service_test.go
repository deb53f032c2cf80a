package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/license"
	"github.com/empireos/entitlement-api/internal/domain/usage"
	"github.com/empireos/entitlement-api/internal/ierr"
)

type mockUsageRepo struct {
	insertManyFn           func(ctx context.Context, stats []*usage.Stat) error
	findByLicenseInRangeFn func(ctx context.Context, licenseID int64, from, to time.Time) ([]*usage.Stat, error)
}

func (m *mockUsageRepo) InsertMany(ctx context.Context, stats []*usage.Stat) error {
	if m.insertManyFn != nil {
		return m.insertManyFn(ctx, stats)
	}
	return nil
}

func (m *mockUsageRepo) FindByLicenseInRange(ctx context.Context, licenseID int64, from, to time.Time) ([]*usage.Stat, error) {
	if m.findByLicenseInRangeFn != nil {
		return m.findByLicenseInRangeFn(ctx, licenseID, from, to)
	}
	return nil, nil
}

func newUsageService(stats usage.Repository, licRepo license.Repository, memRepo *mockMemberRepo) *UsageService {
	if memRepo == nil {
		memRepo = &mockMemberRepo{}
	}
	return NewUsageService(stats, licRepo, memRepo, 90, zap.NewNop())
}

func backfillLicense(activatedAt time.Time) *license.License {
	return &license.License{
		ID:          42,
		LicenseType: license.TierProfessional,
		Status:      license.StatusActive,
		MaxUsers:    10,
		ActivatedAt: sql.NullTime{Time: activatedAt, Valid: true},
		ExpiresAt:   sql.NullTime{Time: activatedAt.AddDate(1, 0, 0), Valid: true},
	}
}

func TestGenerateHistoryCapsAtWindow(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	asOf := time.Date(2025, 8, 1, 14, 30, 0, 0, time.UTC)
	lic := backfillLicense(asOf.AddDate(0, 0, -120))

	stats, err := svc.GenerateHistory(lic, 8, asOf, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, stats, 90, "a 120-day-old license still gets only the window")

	last := stats[len(stats)-1]
	require.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), last.Date)
	require.Equal(t, time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC), stats[0].Date)
}

func TestGenerateHistoryYoungLicense(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	asOf := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	lic := backfillLicense(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))

	stats, err := svc.GenerateHistory(lic, 5, asOf, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, stats, 10, "activation day through asOf inclusive")
	require.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), stats[0].Date)
}

func TestGenerateHistoryDatesAscendUnique(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	asOf := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	lic := backfillLicense(asOf.AddDate(0, 0, -200))

	stats, err := svc.GenerateHistory(lic, 8, asOf, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for i := 1; i < len(stats); i++ {
		require.True(t, stats[i].Date.After(stats[i-1].Date),
			"dates must strictly ascend: %s then %s", stats[i-1].Date, stats[i].Date)
		require.Equal(t, 24*time.Hour, stats[i].Date.Sub(stats[i-1].Date), "no gaps")
	}
}

func TestGenerateHistoryActivityBands(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	asOf := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	lic := backfillLicense(asOf.AddDate(0, 0, -89))
	memberCount := 20

	stats, err := svc.GenerateHistory(lic, memberCount, asOf, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	require.Len(t, stats, 90)

	for _, st := range stats {
		day := st.Date.Weekday()
		if day == time.Saturday || day == time.Sunday {
			require.GreaterOrEqual(t, st.ActiveUsers, int(float64(memberCount)*0.1)-1, "weekend floor on %s", st.Date)
			require.LessOrEqual(t, st.ActiveUsers, int(float64(memberCount)*0.4), "weekend ceiling on %s", st.Date)
		} else {
			require.GreaterOrEqual(t, st.ActiveUsers, int(float64(memberCount)*0.6)-1, "weekday floor on %s", st.Date)
			require.LessOrEqual(t, st.ActiveUsers, memberCount, "weekday ceiling on %s", st.Date)
		}

		require.GreaterOrEqual(t, st.APICalls, st.ActiveUsers*apiCallsPerActiveUser)
		require.Less(t, st.APICalls, st.ActiveUsers*apiCallsPerActiveUser+50)
		require.GreaterOrEqual(t, st.StorageUsedMB, 0.0)
		require.GreaterOrEqual(t, st.TransactionsProcessed, 0)
	}
}

func TestGenerateHistoryStorageGrows(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	asOf := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	lic := backfillLicense(asOf.AddDate(0, 0, -89))

	stats, err := svc.GenerateHistory(lic, 10, asOf, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	first, last := stats[0], stats[len(stats)-1]
	require.Greater(t, last.StorageUsedMB, first.StorageUsedMB, "storage accumulates over the window")
}

func TestGenerateHistoryDeterministicWithSeed(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	asOf := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	lic := backfillLicense(asOf.AddDate(0, 0, -30))

	a, err := svc.GenerateHistory(lic, 6, asOf, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := svc.GenerateHistory(lic, 6, asOf, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestGenerateHistoryRequiresActivation(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	lic := backfillLicense(time.Now())
	lic.ActivatedAt = sql.NullTime{}

	_, err := svc.GenerateHistory(lic, 5, time.Now(), rand.New(rand.NewSource(1)))
	require.True(t, errors.Is(err, ierr.ErrValidation))
}

func TestGenerateHistoryFutureActivation(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	asOf := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	lic := backfillLicense(asOf.AddDate(0, 0, 5))

	stats, err := svc.GenerateHistory(lic, 5, asOf, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Empty(t, stats)
}

func TestBackfillUsesRealMemberCount(t *testing.T) {
	asOf := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	lic := backfillLicense(asOf.AddDate(0, 0, -9))

	licRepo := &mockLicenseRepo{
		findByIDFn: func(_ context.Context, _ int64) (*license.License, error) { return lic, nil },
	}
	memRepo := &mockMemberRepo{
		countActiveFn: func(_ context.Context, licenseID int64) (int, error) {
			require.Equal(t, lic.ID, licenseID)
			return 4, nil
		},
	}

	var written []*usage.Stat
	statsRepo := &mockUsageRepo{
		insertManyFn: func(_ context.Context, stats []*usage.Stat) error {
			written = stats
			return nil
		},
	}

	svc := newUsageService(statsRepo, licRepo, memRepo).
		WithRandSource(func() *rand.Rand { return rand.New(rand.NewSource(11)) })

	n, err := svc.Backfill(context.Background(), lic.ID, asOf)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Len(t, written, 10)
	for _, st := range written {
		require.Equal(t, lic.ID, st.LicenseID)
		require.LessOrEqual(t, st.ActiveUsers, 4)
	}
}

func TestBackfillLicenseNotFound(t *testing.T) {
	svc := newUsageService(&mockUsageRepo{}, &mockLicenseRepo{}, nil)

	_, err := svc.Backfill(context.Background(), 404, time.Now())
	require.True(t, errors.Is(err, ierr.ErrNotFound))
}

func TestBackfillInsertFailureWritesNothing(t *testing.T) {
	asOf := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	lic := backfillLicense(asOf.AddDate(0, 0, -5))

	licRepo := &mockLicenseRepo{
		findByIDFn: func(_ context.Context, _ int64) (*license.License, error) { return lic, nil },
	}
	statsRepo := &mockUsageRepo{
		insertManyFn: func(_ context.Context, _ []*usage.Stat) error {
			return errors.New("deadlock detected")
		},
	}
	svc := newUsageService(statsRepo, licRepo, nil)

	n, err := svc.Backfill(context.Background(), lic.ID, asOf)
	require.Error(t, err)
	require.Zero(t, n)
}

func TestSeriesNormalizesRange(t *testing.T) {
	var gotFrom, gotTo time.Time
	statsRepo := &mockUsageRepo{
		findByLicenseInRangeFn: func(_ context.Context, _ int64, from, to time.Time) ([]*usage.Stat, error) {
			gotFrom, gotTo = from, to
			return []*usage.Stat{{LicenseID: 42}}, nil
		},
	}
	svc := newUsageService(statsRepo, &mockLicenseRepo{}, nil)

	from := time.Date(2025, 7, 1, 13, 45, 0, 0, time.UTC)
	to := time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC)
	stats, err := svc.Series(context.Background(), 42, from, to)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), gotFrom)
	require.Equal(t, time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC), gotTo)
}
