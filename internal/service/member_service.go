package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/license"
	"github.com/empireos/entitlement-api/internal/domain/member"
	"github.com/empireos/entitlement-api/internal/ierr"
	"github.com/empireos/entitlement-api/internal/metrics"
)

// MemberService manages the seats of a license. The active-row count in the
// membership table is the source of truth for currentUsers; the denormalized
// column on the license is refreshed after every membership change.
type MemberService struct {
	members  member.Repository
	licenses license.Repository
	logger   *zap.Logger
}

func NewMemberService(members member.Repository, licenses license.Repository, logger *zap.Logger) *MemberService {
	return &MemberService{
		members:  members,
		licenses: licenses,
		logger:   logger.Named("MemberService"),
	}
}

// AddMember attaches a platform user to a license. Fails once the active
// member count has reached the license's seat cap. The caller decides the
// role; permissions follow from it.
func (s *MemberService) AddMember(ctx context.Context, licenseID int64, userID uuid.UUID, role string) (*member.Member, error) {
	lic, err := s.licenses.FindByID(ctx, licenseID)
	if err != nil {
		if errors.Is(err, ierr.ErrNotFound) {
			return nil, fmt.Errorf("%w: license %d", ierr.ErrNotFound, licenseID)
		}
		return nil, fmt.Errorf("repository error loading license %d: %w", licenseID, err)
	}

	count, err := s.members.CountActive(ctx, licenseID)
	if err != nil {
		return nil, fmt.Errorf("repository error counting members of license %d: %w", licenseID, err)
	}
	if count >= lic.MaxUsers {
		return nil, fmt.Errorf("%w: license %d already has %d of %d seats filled", ierr.ErrSeatLimitExceeded, licenseID, count, lic.MaxUsers)
	}

	permissions, isAdmin := member.PermissionsForRole(role)
	m := &member.Member{
		LicenseID:   licenseID,
		UserID:      userID,
		IsAdmin:     isAdmin,
		Role:        role,
		Permissions: permissions,
		Active:      true,
	}

	if err := s.members.InsertMany(ctx, []*member.Member{m}); err != nil {
		if errors.Is(err, ierr.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: user %s on license %d", ierr.ErrMemberExists, userID, licenseID)
		}
		return nil, fmt.Errorf("repository error adding member to license %d: %w", licenseID, err)
	}

	s.refreshSeatCount(ctx, lic)

	metrics.MembersAdded.Inc()
	s.logger.Info("Member added to license",
		zap.Int64("license_id", licenseID),
		zap.String("user_id", userID.String()),
		zap.String("role", role),
		zap.Bool("is_admin", isAdmin),
	)
	return m, nil
}

// RemoveMember marks the membership inactive rather than deleting the row,
// keeping the historical record and freeing the seat.
func (s *MemberService) RemoveMember(ctx context.Context, licenseID int64, userID uuid.UUID) error {
	lic, err := s.licenses.FindByID(ctx, licenseID)
	if err != nil {
		if errors.Is(err, ierr.ErrNotFound) {
			return fmt.Errorf("%w: license %d", ierr.ErrNotFound, licenseID)
		}
		return fmt.Errorf("repository error loading license %d: %w", licenseID, err)
	}

	if err := s.members.Deactivate(ctx, licenseID, userID); err != nil {
		if errors.Is(err, ierr.ErrNotFound) {
			return fmt.Errorf("%w: user %s is not an active member of license %d", ierr.ErrNotFound, userID, licenseID)
		}
		return fmt.Errorf("repository error removing member from license %d: %w", licenseID, err)
	}

	s.refreshSeatCount(ctx, lic)

	s.logger.Info("Member removed from license", zap.Int64("license_id", licenseID), zap.String("user_id", userID.String()))
	return nil
}

func (s *MemberService) ListMembers(ctx context.Context, licenseID int64) ([]*member.Member, error) {
	members, err := s.members.FindByLicense(ctx, licenseID)
	if err != nil {
		return nil, fmt.Errorf("repository error listing members of license %d: %w", licenseID, err)
	}
	return members, nil
}

// refreshSeatCount re-derives current_users from the active membership rows.
// The count is denormalized for cheap reads but the rows stay authoritative,
// so a failed refresh is logged and corrected on the next change.
func (s *MemberService) refreshSeatCount(ctx context.Context, lic *license.License) {
	count, err := s.members.CountActive(ctx, lic.ID)
	if err != nil {
		s.logger.Warn("Failed to recount active members", zap.Int64("license_id", lic.ID), zap.Error(err))
		return
	}
	lic.CurrentUsers = count
	if err := s.licenses.Update(ctx, lic); err != nil {
		s.logger.Warn("Failed to persist refreshed seat count", zap.Int64("license_id", lic.ID), zap.Error(err))
	}
}
