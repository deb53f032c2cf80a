package license

import (
	"fmt"

	"github.com/empireos/entitlement-api/internal/ierr"
)

// TierDefinition is the default grant for one license tier: monthly price,
// the feature flags and platform modules the tier unlocks, and the prefix
// used for keys issued under it.
type TierDefinition struct {
	Price     float64
	KeyPrefix string
	Features  []string
	Modules   []string
}

// tierCatalog is fixed at build time. Treat as immutable: ResolveTierDefaults
// hands out copies so callers can never mutate the table.
var tierCatalog = map[Tier]TierDefinition{
	TierBasic: {
		Price:     99,
		KeyPrefix: "BAS",
		Features:  []string{"design_basic", "marketplace_access", "order_tracking"},
		Modules:   []string{"dashboard", "marketplace"},
	},
	TierProfessional: {
		Price:     299,
		KeyPrefix: "PRO",
		Features:  []string{"design_basic", "design_advanced", "marketplace_access", "order_tracking", "analytics_basic", "api_access"},
		Modules:   []string{"dashboard", "marketplace", "virtual_showroom", "analytics"},
	},
	TierEnterprise: {
		Price:     999,
		KeyPrefix: "ENT",
		Features:  []string{"design_basic", "design_advanced", "marketplace_access", "order_tracking", "analytics_basic", "analytics_advanced", "api_access", "white_label", "multi_currency", "priority_support"},
		Modules:   []string{"dashboard", "marketplace", "virtual_showroom", "analytics", "logistics", "admin"},
	},
	TierSupplier: {
		Price:     199,
		KeyPrefix: "SUP",
		Features:  []string{"marketplace_access", "order_tracking", "supply_chain_tracking", "inventory_sync"},
		Modules:   []string{"dashboard", "marketplace", "sourcing", "logistics"},
	},
	TierManufacturer: {
		Price:     399,
		KeyPrefix: "MFG",
		Features:  []string{"marketplace_access", "order_tracking", "supply_chain_tracking", "production_planning", "quality_control", "compliance_docs"},
		Modules:   []string{"dashboard", "marketplace", "manufacturing", "logistics"},
	},
	TierAcademic: {
		Price:     49,
		KeyPrefix: "ACA",
		Features:  []string{"design_basic", "marketplace_access", "student_tools"},
		Modules:   []string{"dashboard", "virtual_showroom"},
	},
}

// ResolveTierDefaults returns the default price, features and modules for a
// tier, or ierr.ErrUnknownTier for an unrecognized one.
func ResolveTierDefaults(tier Tier) (TierDefinition, error) {
	def, ok := tierCatalog[tier]
	if !ok {
		return TierDefinition{}, fmt.Errorf("%w: %q", ierr.ErrUnknownTier, tier)
	}

	out := TierDefinition{
		Price:     def.Price,
		KeyPrefix: def.KeyPrefix,
		Features:  make([]string, len(def.Features)),
		Modules:   make([]string, len(def.Modules)),
	}
	copy(out.Features, def.Features)
	copy(out.Modules, def.Modules)
	return out, nil
}

// Tiers returns every known tier, for validation and seeding.
func Tiers() []Tier {
	return []Tier{TierBasic, TierProfessional, TierEnterprise, TierSupplier, TierManufacturer, TierAcademic}
}
