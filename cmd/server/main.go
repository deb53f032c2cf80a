package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/empireos/entitlement-api/internal/config"
	"github.com/empireos/entitlement-api/internal/handler"
	"github.com/empireos/entitlement-api/internal/handler/middleware"
	"github.com/empireos/entitlement-api/internal/ierr"
	"github.com/empireos/entitlement-api/internal/service"
	"github.com/empireos/entitlement-api/internal/storage/postgres"
	"github.com/empireos/entitlement-api/internal/storage/redis"
	"github.com/empireos/entitlement-api/internal/worker"
	"github.com/empireos/entitlement-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()
	sugarLogger.Info("Starting entitlement service...")

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	licenseRepo := postgres.NewLicenseRepository(dbPool, appLogger)
	memberRepo := postgres.NewMemberRepository(dbPool, appLogger)
	usageRepo := postgres.NewUsageRepository(dbPool, appLogger)

	licenseService := service.NewLicenseService(licenseRepo, asynqClient, &cfg.License, appLogger)
	entitlementService := service.NewEntitlementService(licenseRepo, redisClient, cfg.License.EntitlementCacheTTL, appLogger)
	memberService := service.NewMemberService(memberRepo, licenseRepo, appLogger)
	usageService := service.NewUsageService(usageRepo, licenseRepo, memberRepo, cfg.License.BackfillWindowDays, appLogger)

	healthHandler := handler.NewHealthHandler(dbPool, redisClient, appLogger)
	licenseHandler := handler.NewLicenseHandler(licenseService, entitlementService, appLogger)
	memberHandler := handler.NewMemberHandler(memberService, appLogger)
	usageHandler := handler.NewUsageHandler(usageService, appLogger)
	dashboardHandler := handler.NewDashboardHandler(licenseService, appLogger)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		appLogger.Error(logMsg, zap.Stack("stack"))

		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.ErrorHandlerMiddleware(appLogger))

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		licenseRoutes := apiV1.Group("/licenses")
		{
			licenseRoutes.POST("", licenseHandler.Issue)
			licenseRoutes.GET("", licenseHandler.List)
			licenseRoutes.GET("/:id", licenseHandler.GetByID)
			licenseRoutes.POST("/:id/renew", licenseHandler.Renew)
			licenseRoutes.POST("/:id/suspend", licenseHandler.Suspend)
			licenseRoutes.POST("/:id/cancel", licenseHandler.Cancel)
			licenseRoutes.POST("/:id/reactivate", licenseHandler.Reactivate)
			licenseRoutes.GET("/:id/entitlements", licenseHandler.Entitlements)
			licenseRoutes.POST("/:id/grants", licenseHandler.AppendGrants)

			licenseRoutes.POST("/:id/members", memberHandler.Add)
			licenseRoutes.GET("/:id/members", memberHandler.List)
			licenseRoutes.DELETE("/:id/members/:userId", memberHandler.Remove)

			licenseRoutes.GET("/:id/usage", usageHandler.Series)
			licenseRoutes.POST("/:id/usage/backfill", usageHandler.Backfill)
		}

		dashboardRoutes := apiV1.Group("/dashboard")
		{
			dashboardRoutes.GET("/summary", dashboardHandler.GetSummary)
		}
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, licenseRepo, usageService, appLogger); err != nil {
			return fmt.Errorf("asynq worker error: %w", err)
		}
		return nil
	})

	sugarLogger.Info("Service started. Waiting for interrupt signal or component error...")

	waitErr := g.Wait()
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		sugarLogger.Errorf("Service shutdown finished with error: %v", waitErr)
		return
	}
	sugarLogger.Info("Service shutdown complete.")
}
