package tasks

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/license"
)

type stubLicenseRepo struct {
	listFn         func(ctx context.Context, params license.ListParams) ([]*license.License, int64, error)
	updateStatusFn func(ctx context.Context, id int64, status license.Status) error
}

func (s *stubLicenseRepo) Create(context.Context, *license.License) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *stubLicenseRepo) FindByID(context.Context, int64) (*license.License, error) {
	return nil, errors.New("not implemented")
}

func (s *stubLicenseRepo) FindByKey(context.Context, string) (*license.License, error) {
	return nil, errors.New("not implemented")
}

func (s *stubLicenseRepo) Update(context.Context, *license.License) error {
	return errors.New("not implemented")
}

func (s *stubLicenseRepo) UpdateStatus(ctx context.Context, id int64, status license.Status) error {
	return s.updateStatusFn(ctx, id, status)
}

func (s *stubLicenseRepo) List(ctx context.Context, params license.ListParams) ([]*license.License, int64, error) {
	return s.listFn(ctx, params)
}

func (s *stubLicenseRepo) CountByStatus(context.Context) (map[license.Status]int64, error) {
	return nil, errors.New("not implemented")
}

func TestExpireReconcilePersistsOnlyLapsedLicenses(t *testing.T) {
	past := time.Now().UTC().AddDate(0, -1, 0)
	future := time.Now().UTC().AddDate(0, 1, 0)

	lapsed := &license.License{ID: 1, Status: license.StatusActive, ExpiresAt: sql.NullTime{Time: past, Valid: true}}
	current := &license.License{ID: 2, Status: license.StatusActive, ExpiresAt: sql.NullTime{Time: future, Valid: true}}

	var updated []int64
	repo := &stubLicenseRepo{
		listFn: func(_ context.Context, params license.ListParams) ([]*license.License, int64, error) {
			if params.Status != nil && *params.Status == license.StatusActive {
				return []*license.License{lapsed, current}, 2, nil
			}
			return nil, 0, nil
		},
		updateStatusFn: func(_ context.Context, id int64, status license.Status) error {
			require.Equal(t, license.StatusExpired, status)
			updated = append(updated, id)
			return nil
		},
	}

	h := NewExpireReconcileHandler(repo, zap.NewNop())
	task, err := NewExpireReconcileTask()
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	require.Equal(t, []int64{1}, updated, "only the lapsed license gets persisted")
}

func TestExpireReconcileRejectsWrongTaskType(t *testing.T) {
	h := NewExpireReconcileHandler(&stubLicenseRepo{}, zap.NewNop())
	err := h.ProcessTask(context.Background(), asynq.NewTask("something:else", nil))
	require.Error(t, err)
}

type stubBackfiller struct {
	fn func(ctx context.Context, licenseID int64, asOf time.Time) (int, error)
}

func (s *stubBackfiller) Backfill(ctx context.Context, licenseID int64, asOf time.Time) (int, error) {
	return s.fn(ctx, licenseID, asOf)
}

func TestUsageBackfillHandlerPassesLicenseID(t *testing.T) {
	var gotID int64
	bf := &stubBackfiller{
		fn: func(_ context.Context, licenseID int64, _ time.Time) (int, error) {
			gotID = licenseID
			return 90, nil
		},
	}
	h := NewUsageBackfillHandler(bf, zap.NewNop())

	task, err := NewUsageBackfillTask(77)
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	require.Equal(t, int64(77), gotID)
}

func TestUsageBackfillHandlerPropagatesFailure(t *testing.T) {
	backfillErr := errors.New("connection refused")
	bf := &stubBackfiller{
		fn: func(context.Context, int64, time.Time) (int, error) {
			return 0, backfillErr
		},
	}
	h := NewUsageBackfillHandler(bf, zap.NewNop())

	task, err := NewUsageBackfillTask(77)
	require.NoError(t, err)

	err = h.ProcessTask(context.Background(), task)
	require.True(t, errors.Is(err, backfillErr))
}
