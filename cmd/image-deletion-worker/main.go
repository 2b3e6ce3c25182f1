package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mahuwo/mahuwo-backend/internal/images"
	"github.com/mahuwo/mahuwo-backend/internal/images/consumer"
	"github.com/mahuwo/mahuwo-backend/pkg/config"
	"github.com/mahuwo/mahuwo-backend/pkg/db"
	"github.com/mahuwo/mahuwo-backend/pkg/instance"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
	"github.com/mahuwo/mahuwo-backend/pkg/pubsub"
)

const serviceKind = "image-deletion-worker"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.PubSub.ImageDeletionSubscription == "" {
		requireResource(ctx, logg, "pubsub subscription", errors.New(config.EnvPubSubImageDelSub+" is required"))
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	deletionConsumer, err := consumer.NewDeletionConsumer(
		images.NewRepository(dbClient.DB()),
		pubsubClient.ImageDeletionSubscription(),
		logg,
	)
	requireResource(ctx, logg, "image deletion consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "image deletion worker ready")

	if err := deletionConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "image deletion worker stopped", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
