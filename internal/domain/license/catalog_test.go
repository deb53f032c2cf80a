package license

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/empireos/entitlement-api/internal/ierr"
)

func TestResolveTierDefaultsAllTiers(t *testing.T) {
	for _, tier := range Tiers() {
		def, err := ResolveTierDefaults(tier)
		require.NoError(t, err, "tier %s", tier)
		require.Greater(t, def.Price, 0.0, "tier %s must have a positive price", tier)
		require.NotEmpty(t, def.Features, "tier %s must grant features", tier)
		require.NotEmpty(t, def.Modules, "tier %s must grant modules", tier)
		require.Len(t, def.KeyPrefix, 3, "tier %s key prefix", tier)
	}
}

func TestResolveTierDefaultsUnknownTier(t *testing.T) {
	_, err := ResolveTierDefaults(Tier("platinum"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ierr.ErrUnknownTier))
	require.Contains(t, err.Error(), "platinum")
}

func TestResolveTierDefaultsReturnsCopies(t *testing.T) {
	def, err := ResolveTierDefaults(TierBasic)
	require.NoError(t, err)

	def.Features[0] = "tampered"
	def.Modules[0] = "tampered"

	fresh, err := ResolveTierDefaults(TierBasic)
	require.NoError(t, err)
	require.NotContains(t, fresh.Features, "tampered")
	require.NotContains(t, fresh.Modules, "tampered")
}

func TestBasicTierGrants(t *testing.T) {
	def, err := ResolveTierDefaults(TierBasic)
	require.NoError(t, err)
	require.Equal(t, 99.0, def.Price)
	require.Contains(t, def.Features, "design_basic")
	require.Contains(t, def.Features, "marketplace_access")
}
