package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/usage"
)

type UsageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUsageRepository(db *pgxpool.Pool, logger *zap.Logger) *UsageRepository {
	return &UsageRepository{
		db:     db,
		logger: logger.Named("UsageRepository"),
	}
}

var _ usage.Repository = (*UsageRepository)(nil)

// InsertMany writes all rows in one transaction. ON CONFLICT DO NOTHING keeps
// existing rows untouched: stats are append-once and today's row may already
// have been written by the live collector.
func (r *UsageRepository) InsertMany(ctx context.Context, stats []*usage.Stat) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting usage insert transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO license_usage_stats (
            license_id, stat_date, active_users, api_calls,
            storage_used_mb, transactions_processed
        ) VALUES (
            $1, $2, $3, $4, $5, $6
        )
        ON CONFLICT (license_id, stat_date) DO NOTHING
    `

	for _, st := range stats {
		if _, err := tx.Exec(ctx, query,
			st.LicenseID,
			st.Date,
			st.ActiveUsers,
			st.APICalls,
			st.StorageUsedMB,
			st.TransactionsProcessed,
		); err != nil {
			r.logger.Error("Failed to insert usage stat",
				zap.Int64("license_id", st.LicenseID),
				zap.Time("date", st.Date),
				zap.Error(err),
			)
			return fmt.Errorf("database error on insert usage stat: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing usage insert: %w", err)
	}
	return nil
}

func (r *UsageRepository) FindByLicenseInRange(ctx context.Context, licenseID int64, from, to time.Time) ([]*usage.Stat, error) {
	query := `
        SELECT id, license_id, stat_date, active_users, api_calls,
               storage_used_mb, transactions_processed
        FROM license_usage_stats
        WHERE license_id = $1 AND stat_date >= $2 AND stat_date <= $3
        ORDER BY stat_date ASC
    `

	rows, err := r.db.Query(ctx, query, licenseID, from, to)
	if err != nil {
		r.logger.Error("Failed to query usage stats", zap.Int64("license_id", licenseID), zap.Error(err))
		return nil, fmt.Errorf("database error on list usage stats: %w", err)
	}
	defer rows.Close()

	stats := make([]*usage.Stat, 0)
	for rows.Next() {
		var st usage.Stat
		err := rows.Scan(
			&st.ID,
			&st.LicenseID,
			&st.Date,
			&st.ActiveUsers,
			&st.APICalls,
			&st.StorageUsedMB,
			&st.TransactionsProcessed,
		)
		if err != nil {
			return nil, fmt.Errorf("database scan error on list usage stats: %w", err)
		}
		stats = append(stats, &st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on list usage stats: %w", err)
	}

	return stats, nil
}
