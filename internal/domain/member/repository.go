package member

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// InsertMany writes all rows or none.
	InsertMany(ctx context.Context, members []*Member) error
	FindByLicense(ctx context.Context, licenseID int64) ([]*Member, error)
	CountActive(ctx context.Context, licenseID int64) (int, error)
	Deactivate(ctx context.Context, licenseID int64, userID uuid.UUID) error
}
