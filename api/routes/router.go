package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mahuwo/mahuwo-backend/api/controllers"
	"github.com/mahuwo/mahuwo-backend/api/middleware"
	"github.com/mahuwo/mahuwo-backend/internal/drafts"
	"github.com/mahuwo/mahuwo-backend/internal/gallery"
	"github.com/mahuwo/mahuwo-backend/internal/listings"
	"github.com/mahuwo/mahuwo-backend/pkg/config"
	"github.com/mahuwo/mahuwo-backend/pkg/db"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
	"github.com/mahuwo/mahuwo-backend/pkg/redis"
	"github.com/mahuwo/mahuwo-backend/pkg/storage/gcs"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gcsP gcs.Pinger,
	idempotencyStore redis.IdempotencyStore,
	draftService drafts.Service,
	listingService listings.Service,
	galleryService gallery.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessDeps(dbP, redisP, gcsP), logg))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/listings/{listingId}/videos", controllers.PublicListingVideos(galleryService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/listings", func(r chi.Router) {
			r.Post("/", controllers.ListingCreate(listingService, logg))
			r.Get("/{listingId}", controllers.ListingShow(listingService, logg))
		})

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", controllers.DraftStart(draftService, logg))
			r.Route("/{draftId}", func(r chi.Router) {
				r.Get("/", controllers.DraftGet(draftService, logg))
				r.Delete("/", controllers.DraftEnd(draftService, logg))

				r.Post("/images", controllers.DraftAddImage(draftService, cfg.Media.ImageMaxUploadBytes(), logg))
				r.Delete("/images/{imageId}", controllers.DraftRemoveImage(draftService, logg))

				r.Get("/videos/widget", controllers.DraftWidgetOptions(draftService, logg))
				r.Post("/videos", controllers.DraftAttachVideo(draftService, logg))
				r.Delete("/videos/{slotKey}", controllers.DraftRemoveVideo(draftService, logg))

				r.Post("/submit", controllers.DraftSubmit(draftService, logg))
				r.Post("/publish", controllers.DraftPublish(draftService, logg))
			})
		})
	})

	return r
}

func readinessDeps(dbP db.Pinger, redisP redis.Pinger, gcsP gcs.Pinger) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if redisP != nil {
		deps["redis"] = redisP
	}
	if gcsP != nil {
		deps["gcs"] = gcsP
	}
	return deps
}
