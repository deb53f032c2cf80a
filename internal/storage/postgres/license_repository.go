package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/license"
	"github.com/empireos/entitlement-api/internal/ierr"
)

const pgUniqueViolation = "23505"

type LicenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLicenseRepository(db *pgxpool.Pool, logger *zap.Logger) *LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger.Named("LicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

const licenseColumns = `
    id, license_key, license_type, status, org_name, contact_email,
    contact_phone, max_users, current_users, features, modules,
    transaction_history, activated_at, expires_at, created_at, updated_at
`

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) (int64, error) {
	query := `
        INSERT INTO licenses (
            license_key, license_type, status, org_name, contact_email,
            contact_phone, max_users, current_users, features, modules,
            transaction_history, activated_at, expires_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
        ) RETURNING id
    `

	history, err := json.Marshal(lic.TransactionHistory)
	if err != nil {
		return 0, fmt.Errorf("failed to encode transaction history: %w", err)
	}

	var insertedID int64
	err = r.db.QueryRow(ctx, query,
		lic.LicenseKey,
		lic.LicenseType,
		lic.Status,
		lic.OrgName,
		lic.ContactEmail,
		lic.ContactPhone,
		lic.MaxUsers,
		lic.CurrentUsers,
		lic.Features,
		lic.Modules,
		history,
		lic.ActivatedAt,
		lic.ExpiresAt,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.logger.Warn("Attempted to create license with duplicate key",
				zap.String("license_key", lic.LicenseKey),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return 0, fmt.Errorf("%w: %s", ierr.ErrDuplicateKey, lic.LicenseKey)
		}

		r.logger.Error("Failed to create license in database", zap.Error(err))
		return 0, fmt.Errorf("database error on create license: %w", err)
	}

	return insertedID, nil
}

func (r *LicenseRepository) FindByID(ctx context.Context, id int64) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	return r.scanLicense(r.db.QueryRow(ctx, query, id))
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE license_key = $1`
	return r.scanLicense(r.db.QueryRow(ctx, query, key))
}

func (r *LicenseRepository) Update(ctx context.Context, lic *license.License) error {
	query := `
        UPDATE licenses SET
            status = $1,
            org_name = $2,
            contact_email = $3,
            contact_phone = $4,
            max_users = $5,
            current_users = $6,
            features = $7,
            modules = $8,
            transaction_history = $9,
            activated_at = $10,
            expires_at = $11
        WHERE id = $12
    `

	history, err := json.Marshal(lic.TransactionHistory)
	if err != nil {
		return fmt.Errorf("failed to encode transaction history: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, query,
		lic.Status,
		lic.OrgName,
		lic.ContactEmail,
		lic.ContactPhone,
		lic.MaxUsers,
		lic.CurrentUsers,
		lic.Features,
		lic.Modules,
		history,
		lic.ActivatedAt,
		lic.ExpiresAt,
		lic.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update license in database", zap.Int64("id", lic.ID), zap.Error(err))
		return fmt.Errorf("database error on update license: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: license %d", ierr.ErrNotFound, lic.ID)
	}

	return nil
}

func (r *LicenseRepository) UpdateStatus(ctx context.Context, id int64, status license.Status) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE licenses SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		r.logger.Error("Failed to update license status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("database error on update license status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: license %d", ierr.ErrNotFound, id)
	}
	return nil
}

var sortableColumns = map[string]bool{
	"created_at": true,
	"expires_at": true,
	"org_name":   true,
	"status":     true,
}

func (r *LicenseRepository) List(ctx context.Context, params license.ListParams) ([]*license.License, int64, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)

	if params.Status != nil {
		args = append(args, *params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Tier != nil {
		args = append(args, *params.Tier)
		where = append(where, fmt.Sprintf("license_type = $%d", len(args)))
	}
	if params.OrgName != nil {
		args = append(args, "%"+*params.OrgName+"%")
		where = append(where, fmt.Sprintf("org_name ILIKE $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM licenses"+whereClause, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count licenses", zap.Error(err))
		return nil, 0, fmt.Errorf("database error counting licenses: %w", err)
	}

	sortBy := params.SortBy
	if !sortableColumns[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(params.SortOrder, "ASC") {
		sortOrder = "ASC"
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM licenses%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		licenseColumns, whereClause, sortBy, sortOrder, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query list of licenses", zap.Error(err))
		return nil, 0, fmt.Errorf("database error on list licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*license.License, 0)
	for rows.Next() {
		lic, err := r.scanLicense(rows)
		if err != nil {
			return nil, 0, err
		}
		licenses = append(licenses, lic)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("database iteration error on list licenses: %w", err)
	}

	return licenses, total, nil
}

func (r *LicenseRepository) CountByStatus(ctx context.Context) (map[license.Status]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM licenses GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("database error counting licenses by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[license.Status]int64)
	for rows.Next() {
		var status license.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("database scan error counting licenses by status: %w", err)
		}
		counts[status] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error counting licenses by status: %w", err)
	}

	return counts, nil
}

func (r *LicenseRepository) scanLicense(row pgx.Row) (*license.License, error) {
	var lic license.License
	var history []byte

	err := row.Scan(
		&lic.ID,
		&lic.LicenseKey,
		&lic.LicenseType,
		&lic.Status,
		&lic.OrgName,
		&lic.ContactEmail,
		&lic.ContactPhone,
		&lic.MaxUsers,
		&lic.CurrentUsers,
		&lic.Features,
		&lic.Modules,
		&history,
		&lic.ActivatedAt,
		&lic.ExpiresAt,
		&lic.CreatedAt,
		&lic.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.ErrNotFound
		}
		r.logger.Error("Failed to scan license row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &lic.TransactionHistory); err != nil {
			return nil, fmt.Errorf("failed to decode transaction history: %w", err)
		}
	}

	return &lic, nil
}
