package service

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/license"
)

func newEntitlementService(repo license.Repository) *EntitlementService {
	return NewEntitlementService(repo, nil, time.Minute, zap.NewNop())
}

func TestResolveIncludesTierDefaults(t *testing.T) {
	svc := newEntitlementService(&mockLicenseRepo{})

	lic := storedLicense(license.StatusActive, time.Now().AddDate(1, 0, 0))
	lic.Features = nil
	lic.Modules = nil

	ent, err := svc.Resolve(lic)
	require.NoError(t, err)

	def, err := license.ResolveTierDefaults(license.TierBasic)
	require.NoError(t, err)
	for _, f := range def.Features {
		require.Contains(t, ent.Features, f, "tier default feature %q must survive resolution", f)
	}
	for _, m := range def.Modules {
		require.Contains(t, ent.Modules, m)
	}
}

func TestResolveUnionsStoredGrants(t *testing.T) {
	svc := newEntitlementService(&mockLicenseRepo{})

	lic := storedLicense(license.StatusActive, time.Now().AddDate(1, 0, 0))
	lic.Features = []string{"custom_reports"}
	lic.Modules = []string{"analytics"}

	ent, err := svc.Resolve(lic)
	require.NoError(t, err)
	require.Contains(t, ent.Features, "custom_reports")
	require.Contains(t, ent.Features, "design_basic")
	require.Contains(t, ent.Modules, "analytics")
}

func TestResolveIsIdempotent(t *testing.T) {
	svc := newEntitlementService(&mockLicenseRepo{})

	lic := storedLicense(license.StatusActive, time.Now().AddDate(1, 0, 0))
	lic.Features = []string{"api_access", "design_basic"}

	first, err := svc.Resolve(lic)
	require.NoError(t, err)

	// Feed the resolved set back in as the stored grants.
	lic.Features = first.Features
	lic.Modules = first.Modules
	second, err := svc.Resolve(lic)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestResolveOutputSortedDeduped(t *testing.T) {
	svc := newEntitlementService(&mockLicenseRepo{})

	lic := storedLicense(license.StatusActive, time.Now().AddDate(1, 0, 0))
	lic.Features = []string{"zeta", "alpha", "design_basic", "alpha"}

	ent, err := svc.Resolve(lic)
	require.NoError(t, err)
	require.True(t, slices.IsSorted(ent.Features))

	seen := make(map[string]int)
	for _, f := range ent.Features {
		seen[f]++
	}
	for f, n := range seen {
		require.Equal(t, 1, n, "feature %q appears more than once", f)
	}
}

func TestResolveUnknownTier(t *testing.T) {
	svc := newEntitlementService(&mockLicenseRepo{})

	lic := storedLicense(license.StatusActive, time.Now().AddDate(1, 0, 0))
	lic.LicenseType = license.Tier("platinum")

	_, err := svc.Resolve(lic)
	require.Error(t, err)
}

func TestEffectiveLoadsLicense(t *testing.T) {
	lic := storedLicense(license.StatusActive, time.Now().AddDate(1, 0, 0))
	lic.Features = []string{"design_basic", "marketplace_access", "order_tracking"}

	repo := &mockLicenseRepo{
		findByIDFn: func(_ context.Context, id int64) (*license.License, error) {
			require.Equal(t, int64(42), id)
			return lic, nil
		},
	}
	svc := newEntitlementService(repo)

	ent, err := svc.Effective(context.Background(), 42)
	require.NoError(t, err)
	require.Contains(t, ent.Features, "order_tracking")
}

func TestHasFeatureAndModule(t *testing.T) {
	lic := storedLicense(license.StatusActive, time.Now().AddDate(1, 0, 0))
	lic.Features = []string{"design_basic", "api_access"}
	lic.Modules = []string{"dashboard"}

	repo := &mockLicenseRepo{
		findByIDFn: func(_ context.Context, _ int64) (*license.License, error) { return lic, nil },
	}
	svc := newEntitlementService(repo)

	ok, err := svc.HasFeature(context.Background(), 42, "api_access")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasFeature(context.Background(), 42, "white_label")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.HasModule(context.Background(), 42, "dashboard")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestInvalidateWithoutCacheIsNoop(t *testing.T) {
	svc := newEntitlementService(&mockLicenseRepo{})
	svc.Invalidate(context.Background(), 42)
}
