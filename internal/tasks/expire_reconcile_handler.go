package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/license"
)

// ExpireReconcileHandler persists the expired status that read paths already
// derive lazily. It exists only so the stored rows catch up with the clock;
// a missed or failed run never makes a read report a stale status.
type ExpireReconcileHandler struct {
	repo   license.Repository
	logger *zap.Logger
}

func NewExpireReconcileHandler(repo license.Repository, logger *zap.Logger) *ExpireReconcileHandler {
	return &ExpireReconcileHandler{
		repo:   repo,
		logger: logger.Named("ExpireReconcileHandler"),
	}
}

func (h *ExpireReconcileHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeExpireReconcile {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p ExpireReconcilePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid payload: %v", err)
	}

	h.logger.Info("Reconciling persisted license statuses against expiry dates")

	now := time.Now().UTC()
	updated := 0
	processed := 0

	for _, status := range []license.Status{license.StatusActive, license.StatusTrial} {
		status := status
		params := license.ListParams{
			Status:    &status,
			SortBy:    "expires_at",
			SortOrder: "ASC",
			Limit:     1000,
			Offset:    0,
		}

		for {
			lics, total, err := h.repo.List(ctx, params)
			if err != nil {
				return fmt.Errorf("repository error listing %s licenses: %w", status, err)
			}
			if len(lics) == 0 {
				break
			}
			processed += len(lics)

			for _, lic := range lics {
				if license.DeriveStatus(lic, now) != license.StatusExpired {
					continue
				}
				if err := h.repo.UpdateStatus(ctx, lic.ID, license.StatusExpired); err != nil {
					h.logger.Error("Failed to persist expired status",
						zap.Int64("license_id", lic.ID),
						zap.Error(err),
					)
					continue
				}
				updated++
			}

			if len(lics) < params.Limit {
				break
			}
			params.Offset += params.Limit
			if int64(params.Offset) >= total {
				break
			}
		}
	}

	h.logger.Info("License expiry reconciliation finished",
		zap.Int("processed", processed),
		zap.Int("updated_to_expired", updated),
	)
	return nil
}
