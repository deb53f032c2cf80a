package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeExpireReconcile = "license:expire:reconcile"
	TypeUsageBackfill   = "license:usage:backfill"
)

type ExpireReconcilePayload struct{}

type UsageBackfillPayload struct {
	LicenseID int64 `json:"license_id"`
}

func NewExpireReconcileTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(ExpireReconcilePayload{})
	if err != nil {
		return nil, err
	}

	allOpts := append(opts, asynq.Unique(1*time.Hour))
	return asynq.NewTask(TypeExpireReconcile, payloadBytes, allOpts...), nil
}

func NewUsageBackfillTask(licenseID int64, opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(UsageBackfillPayload{LicenseID: licenseID})
	if err != nil {
		return nil, err
	}

	allOpts := append(opts, asynq.MaxRetry(3))
	return asynq.NewTask(TypeUsageBackfill, payloadBytes, allOpts...), nil
}
