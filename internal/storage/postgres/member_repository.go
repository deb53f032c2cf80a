package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/member"
	"github.com/empireos/entitlement-api/internal/ierr"
)

type MemberRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMemberRepository(db *pgxpool.Pool, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{
		db:     db,
		logger: logger.Named("MemberRepository"),
	}
}

var _ member.Repository = (*MemberRepository)(nil)

// InsertMany writes all rows inside one transaction: seeding a license's
// members either fully succeeds or leaves nothing behind.
func (r *MemberRepository) InsertMany(ctx context.Context, members []*member.Member) error {
	if len(members) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting member insert transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO license_users (
            license_id, user_id, is_admin, role, permissions, active, last_login
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7
        ) RETURNING id, created_at, updated_at
    `

	for _, m := range members {
		err := tx.QueryRow(ctx, query,
			m.LicenseID,
			m.UserID,
			m.IsAdmin,
			m.Role,
			m.Permissions,
			m.Active,
			m.LastLogin,
		).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("%w: user %s on license %d", ierr.ErrDuplicateKey, m.UserID, m.LicenseID)
			}
			r.logger.Error("Failed to insert license member", zap.Int64("license_id", m.LicenseID), zap.Error(err))
			return fmt.Errorf("database error on insert member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing member insert: %w", err)
	}
	return nil
}

func (r *MemberRepository) FindByLicense(ctx context.Context, licenseID int64) ([]*member.Member, error) {
	query := `
        SELECT id, license_id, user_id, is_admin, role, permissions, active,
               last_login, created_at, updated_at
        FROM license_users
        WHERE license_id = $1
        ORDER BY created_at ASC
    `

	rows, err := r.db.Query(ctx, query, licenseID)
	if err != nil {
		r.logger.Error("Failed to query license members", zap.Int64("license_id", licenseID), zap.Error(err))
		return nil, fmt.Errorf("database error on list members: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		var m member.Member
		err := rows.Scan(
			&m.ID,
			&m.LicenseID,
			&m.UserID,
			&m.IsAdmin,
			&m.Role,
			&m.Permissions,
			&m.Active,
			&m.LastLogin,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("database scan error on list members: %w", err)
		}
		members = append(members, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on list members: %w", err)
	}

	return members, nil
}

func (r *MemberRepository) CountActive(ctx context.Context, licenseID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM license_users WHERE license_id = $1 AND active`,
		licenseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting active members: %w", err)
	}
	return count, nil
}

func (r *MemberRepository) Deactivate(ctx context.Context, licenseID int64, userID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE license_users SET active = false WHERE license_id = $1 AND user_id = $2 AND active`,
		licenseID, userID,
	)
	if err != nil {
		r.logger.Error("Failed to deactivate license member", zap.Int64("license_id", licenseID), zap.Error(err))
		return fmt.Errorf("database error on deactivate member: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ierr.ErrNotFound
	}
	return nil
}
