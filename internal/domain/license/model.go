package license

import (
	"database/sql"
	"time"
)

type Tier string

const (
	TierBasic        Tier = "basic"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
	TierSupplier     Tier = "supplier"
	TierManufacturer Tier = "manufacturer"
	TierAcademic     Tier = "academic"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

type TransactionType string

const (
	TransactionCharge TransactionType = "charge"
	TransactionRefund TransactionType = "refund"
	TransactionCredit TransactionType = "credit"
)

// Transaction is one entry in a license's billing ledger. Entries are
// append-only: never mutated or reordered after insert.
type Transaction struct {
	Date        time.Time       `json:"date"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
}

// License is the billing/entitlement aggregate. Status is mutated only by the
// lifecycle service; Features/Modules may grow beyond the tier defaults but
// never shrink below them; TransactionHistory is append-only.
type License struct {
	ID                 int64          `db:"id" json:"id"`
	LicenseKey         string         `db:"license_key" json:"license_key"`
	LicenseType        Tier           `db:"license_type" json:"license_type"`
	Status             Status         `db:"status" json:"status"`
	OrgName            string         `db:"org_name" json:"org_name"`
	ContactEmail       sql.NullString `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone       sql.NullString `db:"contact_phone" json:"contact_phone,omitempty"`
	MaxUsers           int            `db:"max_users" json:"max_users"`
	CurrentUsers       int            `db:"current_users" json:"current_users"`
	Features           []string       `db:"features" json:"features"`
	Modules            []string       `db:"modules" json:"modules"`
	TransactionHistory []Transaction  `db:"transaction_history" json:"transaction_history"`
	ActivatedAt        sql.NullTime   `db:"activated_at" json:"activated_at,omitempty"`
	ExpiresAt          sql.NullTime   `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

func (l *License) AppendTransaction(t Transaction) {
	l.TransactionHistory = append(l.TransactionHistory, t)
}

// AddGrants appends feature and module identifiers, skipping any the license
// already carries. Grants only ever extend the tier defaults.
func (l *License) AddGrants(features, modules []string) {
	l.Features = appendMissing(l.Features, features)
	l.Modules = appendMissing(l.Modules, modules)
}

func appendMissing(existing, additions []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range additions {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		existing = append(existing, v)
	}
	return existing
}

// AddMonths advances t by whole calendar months, clamping day-of-month
// overflow to the last valid day of the resulting month (Jan 31 + 1 month is
// Feb 28, not Mar 3).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
