package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/empireos/entitlement-api/internal/config"
	"github.com/empireos/entitlement-api/internal/domain/license"
	"github.com/empireos/entitlement-api/internal/tasks"
)

// RunWorkers starts the asynq server and scheduler and blocks until ctx is
// cancelled or either component fails. The scheduler enqueues the hourly
// expiry reconciliation; backfill tasks arrive from license issuance.
func RunWorkers(ctx context.Context, cfg *config.Config, licenseRepo license.Repository, backfiller tasks.UsageBackfiller, logger *zap.Logger) error {
	redisConnOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisConnOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Named("AsynqServerErrorHandler").Error("Asynq task processing failed",
					zap.String("task_type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err),
				)
			}),
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqServer")),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeExpireReconcile, tasks.NewExpireReconcileHandler(licenseRepo, logger).ProcessTask)
	mux.HandleFunc(tasks.TypeUsageBackfill, tasks.NewUsageBackfillHandler(backfiller, logger).ProcessTask)

	scheduler := asynq.NewScheduler(
		redisConnOpts,
		&asynq.SchedulerOpts{
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqScheduler")),
		},
	)

	reconcileTask, err := tasks.NewExpireReconcileTask()
	if err != nil {
		return fmt.Errorf("scheduler task creation error: %w", err)
	}
	entryID, err := scheduler.Register("@every 1h", reconcileTask)
	if err != nil {
		return fmt.Errorf("scheduler registration error: %w", err)
	}
	logger.Info("Registered periodic license expiry reconciliation", zap.String("entry_id", entryID), zap.String("schedule", "@every 1h"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Asynq server...")
		if err := srv.Run(mux); err != nil {
			return fmt.Errorf("asynq server error: %w", err)
		}
		logger.Info("Asynq server stopped.")
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting Asynq scheduler...")
		if err := scheduler.Run(); err != nil {
			return fmt.Errorf("asynq scheduler error: %w", err)
		}
		logger.Info("Asynq scheduler stopped.")
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		scheduler.Shutdown()
		srv.Shutdown()
		return nil
	})

	return g.Wait()
}

type asynqLoggerAdapter struct {
	logger *zap.Logger
}

func NewAsynqLoggerAdapter(logger *zap.Logger) *asynqLoggerAdapter {
	return &asynqLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *asynqLoggerAdapter) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
