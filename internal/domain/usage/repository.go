package usage

import (
	"context"
	"time"
)

type Repository interface {
	// InsertMany writes all rows in one transaction. Days that already have a
	// row for the license are left untouched: the live collector owns today's
	// row and the backfill must never clobber it.
	InsertMany(ctx context.Context, stats []*Stat) error
	FindByLicenseInRange(ctx context.Context, licenseID int64, from, to time.Time) ([]*Stat, error)
}
