package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mahuwo/mahuwo-backend/api/routes"
	"github.com/mahuwo/mahuwo-backend/internal/drafts"
	"github.com/mahuwo/mahuwo-backend/internal/gallery"
	"github.com/mahuwo/mahuwo-backend/internal/images"
	"github.com/mahuwo/mahuwo-backend/internal/listings"
	"github.com/mahuwo/mahuwo-backend/pkg/config"
	"github.com/mahuwo/mahuwo-backend/pkg/db"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
	"github.com/mahuwo/mahuwo-backend/pkg/metrics"
	"github.com/mahuwo/mahuwo-backend/pkg/migrate"
	"github.com/mahuwo/mahuwo-backend/pkg/pubsub"
	"github.com/mahuwo/mahuwo-backend/pkg/redis"
	"github.com/mahuwo/mahuwo-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	// Local mode keeps drafts and objects in process so the API runs without
	// Redis or GCS credentials.
	local := cfg.FeatureFlags.UseSQLite

	var (
		draftStore  drafts.Store
		idempotency redis.IdempotencyStore
		redisP      redis.Pinger
		objects     gcs.ObjectStore
		gcsP        gcs.Pinger
	)
	if local {
		draftStore = drafts.NewMemoryStore(cfg.Media.DraftTTL, cfg.Media.DraftMaxAge)
		objects = gcs.NewMemoryStore(cfg.GCS.PublicBaseURL, cfg.GCS.BucketName)
		logg.Warn(ctx, "local mode: drafts and images are kept in memory")
	} else {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()

		redisStore, err := drafts.NewRedisStore(redisClient, cfg.Media.DraftTTL, cfg.Media.DraftMaxAge)
		requireResource(ctx, logg, "draft store", err)

		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		requireResource(ctx, logg, "gcs", err)
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logg.Error(ctx, "error closing gcs", err)
			}
		}()

		draftStore, idempotency, redisP = redisStore, redisClient, redisClient
		objects, gcsP = gcsClient, gcsClient
	}

	var events pubsub.EventPublisher = pubsub.NoopPublisher{}
	if cfg.PubSub.Enabled() && !local {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer pubsubClient.Close()

		publisher := pubsubClient.ListingPublisher()
		if publisher != nil {
			defer publisher.Stop()
		}
		events = pubsub.NewTopicPublisher(publisher)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	draftMetrics := metrics.NewDraftMetrics(registry)

	imageRepo := images.NewRepository(dbClient.DB())
	imageService, err := images.NewService(imageRepo, objects, cfg.Media.ImageMaxUploadBytes(), logg)
	requireResource(ctx, logg, "image service", err)

	listingService, err := listings.NewService(
		listings.NewRepository(dbClient.DB()),
		dbClient,
		imageRepo,
		objects,
		events,
		cfg.Media.MaxVideos,
		logg,
	)
	requireResource(ctx, logg, "listing service", err)

	draftService, err := drafts.NewService(drafts.ServiceParams{
		Store:         draftStore,
		Uploader:      imageService,
		Remover:       imageService,
		Listings:      listings.NewDraftGateway(listingService),
		VideoCapacity: cfg.Media.MaxVideos,
		Widget:        cfg.VideoWidget,
		Image: drafts.ImageConfig{
			AspectWidth:   cfg.Media.ImageAspectW,
			AspectHeight:  cfg.Media.ImageAspectH,
			VariantPrefix: cfg.Media.ImageVariant,
		},
		Metrics: draftMetrics,
		Logger:  logg,
	})
	requireResource(ctx, logg, "draft service", err)

	galleryService, err := gallery.NewService(listingService)
	requireResource(ctx, logg, "gallery service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"local": local,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisP,
			gcsP,
			idempotency,
			draftService,
			listingService,
			galleryService,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
