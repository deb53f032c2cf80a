package usage

import "time"

// Stat is one immutable daily usage snapshot for a license. At most one row
// exists per license per calendar day; rows are appended once and never
// updated in place.
type Stat struct {
	ID                    int64     `db:"id" json:"id"`
	LicenseID             int64     `db:"license_id" json:"license_id"`
	Date                  time.Time `db:"stat_date" json:"date"`
	ActiveUsers           int       `db:"active_users" json:"active_users"`
	APICalls              int       `db:"api_calls" json:"api_calls"`
	StorageUsedMB         float64   `db:"storage_used_mb" json:"storage_used_mb"`
	TransactionsProcessed int       `db:"transactions_processed" json:"transactions_processed"`
}
