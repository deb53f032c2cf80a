package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/config"
	"github.com/empireos/entitlement-api/internal/domain/license"
	"github.com/empireos/entitlement-api/internal/ierr"
	"github.com/empireos/entitlement-api/internal/metrics"
	"github.com/empireos/entitlement-api/internal/tasks"
)

// TaskEnqueuer is the slice of asynq.Client the lifecycle service needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// LicenseService is the lifecycle manager: it is the only component that
// creates licenses or moves them between statuses. Callers must serialize
// mutations to the same license; reads are safe to run concurrently.
type LicenseService struct {
	repo     license.Repository
	enqueuer TaskEnqueuer
	cfg      *config.LicenseConfig
	logger   *zap.Logger
}

func NewLicenseService(repo license.Repository, enqueuer TaskEnqueuer, cfg *config.LicenseConfig, logger *zap.Logger) *LicenseService {
	return &LicenseService{
		repo:     repo,
		enqueuer: enqueuer,
		cfg:      cfg,
		logger:   logger.Named("LicenseService"),
	}
}

type IssueParams struct {
	Tier               license.Tier
	OrgName            string
	ContactEmail       *string
	ContactPhone       *string
	MaxUsers           int
	DurationMonths     int
	Trial              bool
	ActivatedAt        time.Time
	DiscountMultiplier float64
}

// Issue creates a license: seeds features/modules from the tier catalog,
// computes expiry with calendar-month arithmetic, records the initial charge
// and generates a unique key, re-drawing on collision. Nothing is persisted
// unless the single insert succeeds, so a failed issuance leaves no partial
// aggregate behind.
func (s *LicenseService) Issue(ctx context.Context, p IssueParams) (*license.License, error) {
	if p.DurationMonths < 1 {
		return nil, fmt.Errorf("%w: got %d", ierr.ErrInvalidDuration, p.DurationMonths)
	}
	if p.MaxUsers < 1 {
		return nil, fmt.Errorf("%w: got %d", ierr.ErrInvalidSeatCount, p.MaxUsers)
	}

	def, err := license.ResolveTierDefaults(p.Tier)
	if err != nil {
		return nil, err
	}

	activatedAt := p.ActivatedAt
	if activatedAt.IsZero() {
		activatedAt = time.Now().UTC()
	}
	expiresAt := license.AddMonths(activatedAt, p.DurationMonths)

	status := license.StatusActive
	if p.Trial {
		status = license.StatusTrial
	}

	discount := p.DiscountMultiplier
	if discount <= 0 {
		discount = 1
	}
	amount := def.Price * float64(p.DurationMonths) * discount

	lic := &license.License{
		LicenseType:  p.Tier,
		Status:       status,
		OrgName:      p.OrgName,
		MaxUsers:     p.MaxUsers,
		CurrentUsers: 0,
		Features:     def.Features,
		Modules:      def.Modules,
		ActivatedAt:  sql.NullTime{Time: activatedAt, Valid: true},
		ExpiresAt:    sql.NullTime{Time: expiresAt, Valid: true},
	}
	if p.ContactEmail != nil {
		lic.ContactEmail = sql.NullString{String: *p.ContactEmail, Valid: true}
	}
	if p.ContactPhone != nil {
		lic.ContactPhone = sql.NullString{String: *p.ContactPhone, Valid: true}
	}
	lic.AppendTransaction(license.Transaction{
		Date:        activatedAt,
		Amount:      amount,
		Type:        license.TransactionCharge,
		Description: fmt.Sprintf("%s subscription, %d months", p.Tier, p.DurationMonths),
	})

	attempts := s.cfg.KeyAttempts
	if attempts < 1 {
		attempts = 5
	}

	var insertedID int64
	for attempt := 1; ; attempt++ {
		lic.LicenseKey, err = license.GenerateKey(def.KeyPrefix)
		if err != nil {
			return nil, err
		}

		insertedID, err = s.repo.Create(ctx, lic)
		if err == nil {
			break
		}
		if !errors.Is(err, ierr.ErrDuplicateKey) {
			s.logger.Error("Failed to create license via repository", zap.Error(err))
			return nil, fmt.Errorf("repository error during license creation: %w", err)
		}
		if attempt >= attempts {
			s.logger.Error("Exhausted license key generation attempts", zap.Int("attempts", attempts))
			return nil, fmt.Errorf("%w: gave up after %d attempts", ierr.ErrDuplicateKey, attempts)
		}
		s.logger.Warn("License key collision, re-drawing", zap.String("license_key", lic.LicenseKey), zap.Int("attempt", attempt))
	}

	created, err := s.repo.FindByID(ctx, insertedID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve created license (id: %d): %w", insertedID, err)
	}

	metrics.LicensesIssued.WithLabelValues(string(p.Tier)).Inc()
	s.logger.Info("License issued",
		zap.Int64("id", created.ID),
		zap.String("key", created.LicenseKey),
		zap.String("tier", string(p.Tier)),
		zap.Time("expires_at", expiresAt),
	)

	s.enqueueBackfill(created.ID)

	return created, nil
}

// enqueueBackfill schedules synthetic usage history generation for a freshly
// issued license. Best effort: the license exists either way.
func (s *LicenseService) enqueueBackfill(licenseID int64) {
	if s.enqueuer == nil {
		return
	}
	task, err := tasks.NewUsageBackfillTask(licenseID)
	if err != nil {
		s.logger.Error("Failed to build usage backfill task", zap.Int64("license_id", licenseID), zap.Error(err))
		return
	}
	if _, err := s.enqueuer.Enqueue(task); err != nil {
		s.logger.Error("Failed to enqueue usage backfill task", zap.Int64("license_id", licenseID), zap.Error(err))
	}
}

// Renew extends expiry from its current value, not from the call time: a
// license expiring Jan 1 renewed for one month in June expires Feb 1. A
// license expired for longer than the grace window must be re-issued instead.
func (s *LicenseService) Renew(ctx context.Context, id int64, additionalMonths int, asOf time.Time) (*license.License, error) {
	if additionalMonths < 1 {
		return nil, fmt.Errorf("%w: got %d", ierr.ErrInvalidDuration, additionalMonths)
	}

	lic, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	derived := license.DeriveStatus(lic, asOf)
	switch derived {
	case license.StatusCancelled, license.StatusSuspended:
		return nil, fmt.Errorf("%w: cannot renew license %d in status %s", ierr.ErrInvalidTransition, id, derived)
	case license.StatusExpired:
		grace := time.Duration(s.cfg.RenewalGraceDays) * 24 * time.Hour
		if lic.ExpiresAt.Valid && asOf.After(lic.ExpiresAt.Time.Add(grace)) {
			return nil, fmt.Errorf("%w: license %d expired at %s", ierr.ErrExpiredBeyondGrace, id, lic.ExpiresAt.Time.Format(time.RFC3339))
		}
	}

	def, err := license.ResolveTierDefaults(lic.LicenseType)
	if err != nil {
		return nil, err
	}

	lic.ExpiresAt = sql.NullTime{Time: license.AddMonths(lic.ExpiresAt.Time, additionalMonths), Valid: true}
	if lic.ExpiresAt.Time.After(asOf) {
		lic.Status = license.StatusActive
	}
	lic.AppendTransaction(license.Transaction{
		Date:        asOf,
		Amount:      def.Price * float64(additionalMonths),
		Type:        license.TransactionCharge,
		Description: fmt.Sprintf("renewal, %d months", additionalMonths),
	})

	if err := s.repo.Update(ctx, lic); err != nil {
		return nil, fmt.Errorf("repository error during license renewal (id: %d): %w", id, err)
	}

	metrics.LicenseRenewals.Inc()
	s.logger.Info("License renewed", zap.Int64("id", id), zap.Int("additional_months", additionalMonths), zap.Time("expires_at", lic.ExpiresAt.Time))
	return lic, nil
}

func (s *LicenseService) Suspend(ctx context.Context, id int64, reason string, asOf time.Time) (*license.License, error) {
	return s.transition(ctx, id, license.StatusSuspended, reason, asOf)
}

func (s *LicenseService) Cancel(ctx context.Context, id int64, reason string, asOf time.Time) (*license.License, error) {
	return s.transition(ctx, id, license.StatusCancelled, reason, asOf)
}

// Reactivate is only valid from suspended, never from cancelled or expired.
func (s *LicenseService) Reactivate(ctx context.Context, id int64, asOf time.Time) (*license.License, error) {
	lic, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if derived := license.DeriveStatus(lic, asOf); derived != license.StatusSuspended {
		return nil, fmt.Errorf("%w: cannot reactivate license %d from status %s", ierr.ErrInvalidTransition, id, derived)
	}
	return s.applyStatus(ctx, lic, license.StatusActive, "")
}

func (s *LicenseService) transition(ctx context.Context, id int64, to license.Status, reason string, asOf time.Time) (*license.License, error) {
	lic, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	derived := license.DeriveStatus(lic, asOf)
	if !license.CanTransition(derived, to) {
		return nil, fmt.Errorf("%w: license %d cannot go from %s to %s", ierr.ErrInvalidTransition, id, derived, to)
	}
	lic.Status = derived
	return s.applyStatus(ctx, lic, to, reason)
}

func (s *LicenseService) applyStatus(ctx context.Context, lic *license.License, to license.Status, reason string) (*license.License, error) {
	if err := s.repo.UpdateStatus(ctx, lic.ID, to); err != nil {
		return nil, fmt.Errorf("repository error during status change (id: %d): %w", lic.ID, err)
	}
	lic.Status = to

	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	s.logger.Info("License status changed",
		zap.Int64("id", lic.ID),
		zap.String("status", string(to)),
		zap.String("reason", reason),
	)
	return lic, nil
}

// Get returns the license with its status derived as of the given instant.
// The persisted status is left untouched.
func (s *LicenseService) Get(ctx context.Context, id int64, asOf time.Time) (*license.License, error) {
	lic, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lic.Status = license.DeriveStatus(lic, asOf)
	return lic, nil
}

func (s *LicenseService) GetByKey(ctx context.Context, key string, asOf time.Time) (*license.License, error) {
	lic, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	lic.Status = license.DeriveStatus(lic, asOf)
	return lic, nil
}

func (s *LicenseService) List(ctx context.Context, params license.ListParams, asOf time.Time) ([]*license.License, int64, error) {
	lics, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	for _, lic := range lics {
		lic.Status = license.DeriveStatus(lic, asOf)
	}
	return lics, total, nil
}

// AppendGrants extends a license's feature/module set beyond its tier
// defaults. Grants never shrink the set; re-applying the same grant is a
// no-op.
func (s *LicenseService) AppendGrants(ctx context.Context, id int64, features, modules []string) (*license.License, error) {
	lic, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lic.AddGrants(features, modules)
	if err := s.repo.Update(ctx, lic); err != nil {
		return nil, fmt.Errorf("repository error appending grants (id: %d): %w", id, err)
	}

	s.logger.Info("License grants appended", zap.Int64("id", id), zap.Strings("features", features), zap.Strings("modules", modules))
	return lic, nil
}

type DashboardSummary struct {
	TotalLicenses int64
	StatusCounts  map[license.Status]int64
	ExpiringSoon  []*license.License
}

func (s *LicenseService) GetDashboardSummary(ctx context.Context, asOf time.Time) (*DashboardSummary, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository error counting licenses by status: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	active := license.StatusActive
	expiring, _, err := s.repo.List(ctx, license.ListParams{
		Status:    &active,
		Limit:     5,
		SortBy:    "expires_at",
		SortOrder: "ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("repository error listing expiring licenses: %w", err)
	}
	for _, lic := range expiring {
		lic.Status = license.DeriveStatus(lic, asOf)
	}

	return &DashboardSummary{
		TotalLicenses: total,
		StatusCounts:  counts,
		ExpiringSoon:  expiring,
	}, nil
}

func (s *LicenseService) findByID(ctx context.Context, id int64) (*license.License, error) {
	lic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ierr.ErrNotFound) {
			return nil, fmt.Errorf("%w: license %d", ierr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("repository error loading license %d: %w", id, err)
	}
	return lic, nil
}
