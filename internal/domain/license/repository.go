package license

import "context"

type ListParams struct {
	Status    *Status
	Tier      *Tier
	OrgName   *string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type Repository interface {
	Create(ctx context.Context, lic *License) (int64, error)
	FindByID(ctx context.Context, id int64) (*License, error)
	FindByKey(ctx context.Context, key string) (*License, error)
	Update(ctx context.Context, lic *License) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	List(ctx context.Context, params ListParams) ([]*License, int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
