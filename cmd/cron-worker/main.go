package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mahuwo/mahuwo-backend/internal/cron"
	"github.com/mahuwo/mahuwo-backend/internal/images"
	"github.com/mahuwo/mahuwo-backend/pkg/config"
	"github.com/mahuwo/mahuwo-backend/pkg/db"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
	"github.com/mahuwo/mahuwo-backend/pkg/metrics"
	"github.com/mahuwo/mahuwo-backend/pkg/migrate"
	"github.com/mahuwo/mahuwo-backend/pkg/redis"
	"github.com/mahuwo/mahuwo-backend/pkg/storage/gcs"
)

const lockKeyFormat = "mahuwo:cron-worker:lock:%s"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer gcsClient.Close()

	imageRepo := images.NewRepository(dbClient.DB())
	imageService, err := images.NewService(imageRepo, gcsClient, cfg.Media.ImageMaxUploadBytes(), logg)
	requireResource(ctx, logg, "image service", err)

	// drafts are capped at DraftMaxAge, so older staged images are unreachable
	cleanup, err := cron.NewStagedImageCleanupJob(cron.StagedImageCleanupJobParams{
		Logger:    logg,
		Repo:      imageRepo,
		Releaser:  imageService,
		Retention: cfg.Media.StagedImageRetention(),
	})
	requireResource(ctx, logg, "staged image cleanup job", err)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	requireResource(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanup),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
