package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// UsageBackfiller generates and persists the synthetic usage history for one
// license. Implemented by service.UsageService.
type UsageBackfiller interface {
	Backfill(ctx context.Context, licenseID int64, asOf time.Time) (int, error)
}

type UsageBackfillHandler struct {
	backfiller UsageBackfiller
	logger     *zap.Logger
}

func NewUsageBackfillHandler(backfiller UsageBackfiller, logger *zap.Logger) *UsageBackfillHandler {
	return &UsageBackfillHandler{
		backfiller: backfiller,
		logger:     logger.Named("UsageBackfillHandler"),
	}
}

func (h *UsageBackfillHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeUsageBackfill {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p UsageBackfillPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal usage backfill payload", zap.ByteString("payload", t.Payload()), zap.Error(err))
		return fmt.Errorf("invalid payload: %v", err)
	}

	rows, err := h.backfiller.Backfill(ctx, p.LicenseID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("backfill failed for license %d: %w", p.LicenseID, err)
	}

	h.logger.Info("Usage backfill task finished", zap.Int64("license_id", p.LicenseID), zap.Int("rows", rows))
	return nil
}
