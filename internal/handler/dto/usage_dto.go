package dto

import (
	"github.com/empireos/entitlement-api/internal/domain/usage"
)

type UsageSeriesRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

type UsageStatResponse struct {
	Date                  string  `json:"date"`
	ActiveUsers           int     `json:"active_users"`
	APICalls              int     `json:"api_calls"`
	StorageUsedMB         float64 `json:"storage_used_mb"`
	TransactionsProcessed int     `json:"transactions_processed"`
}

type UsageSeriesResponse struct {
	LicenseID int64               `json:"license_id"`
	Stats     []UsageStatResponse `json:"stats"`
}

func NewUsageSeriesResponse(licenseID int64, stats []*usage.Stat) *UsageSeriesResponse {
	resp := &UsageSeriesResponse{
		LicenseID: licenseID,
		Stats:     make([]UsageStatResponse, len(stats)),
	}
	for i, st := range stats {
		resp.Stats[i] = UsageStatResponse{
			Date:                  st.Date.Format("2006-01-02"),
			ActiveUsers:           st.ActiveUsers,
			APICalls:              st.APICalls,
			StorageUsedMB:         st.StorageUsedMB,
			TransactionsProcessed: st.TransactionsProcessed,
		}
	}
	return resp
}

type BackfillResponse struct {
	LicenseID   int64 `json:"license_id"`
	RowsWritten int   `json:"rows_written"`
}
