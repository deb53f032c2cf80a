package dto

import (
	"time"

	"github.com/empireos/entitlement-api/internal/domain/license"
)

type DashboardSummaryResponse struct {
	TotalLicenses int64                    `json:"total_licenses"`
	StatusCounts  map[license.Status]int64 `json:"status_counts"`
	ExpiringSoon  []ExpiringLicenseInfo    `json:"expiring_soon"`
}

type ExpiringLicenseInfo struct {
	LicenseKey string       `json:"license_key"`
	OrgName    string       `json:"org_name"`
	Tier       license.Tier `json:"license_type"`
	ExpiresAt  time.Time    `json:"expires_at"`
}
