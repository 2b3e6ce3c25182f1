package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mahuwo/mahuwo-backend/pkg/db"
	"github.com/mahuwo/mahuwo-backend/pkg/db/models"
	"github.com/mahuwo/mahuwo-backend/pkg/enums"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
	"github.com/mahuwo/mahuwo-backend/pkg/pubsub"
	"github.com/mahuwo/mahuwo-backend/pkg/storage/gcs"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

const (
	EventMediaUpdated = "listing.media_updated"
	EventPublished    = "listing.published"

	aggregateListing = "listing"
)

// Service manages listings and the media attached to them.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ListingDTO, error)
	Show(ctx context.Context, id uuid.UUID) (*ListingDTO, error)
	UpdateMedia(ctx context.Context, id uuid.UUID, input MediaInput) (*ListingDTO, error)
	Publish(ctx context.Context, id uuid.UUID) (*ListingDTO, error)
}

// CreateInput holds the fields of a new draft listing.
type CreateInput struct {
	Title string
}

// MediaInput is a full replacement of the listing's media.
type MediaInput struct {
	Title    *string
	ImageIDs []uuid.UUID
	Videos   []types.ListingVideo
}

type imageRepository interface {
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.ListingImage, error)
	Attach(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, ordered []uuid.UUID) error
	DetachExcept(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, keep []uuid.UUID) ([]models.ListingImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      *Repository
	dbClient  *db.Client
	images    imageRepository
	objects   gcs.ObjectStore
	events    pubsub.EventPublisher
	maxVideos int
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the listing service. A nil publisher disables events.
func NewService(repo *Repository, dbClient *db.Client, images imageRepository, objects gcs.ObjectStore, events pubsub.EventPublisher, maxVideos int, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if images == nil {
		return nil, fmt.Errorf("image repository required")
	}
	if objects == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if events == nil {
		events = pubsub.NoopPublisher{}
	}
	return &service{
		repo:      repo,
		dbClient:  dbClient,
		images:    images,
		objects:   objects,
		events:    events,
		maxVideos: maxVideos,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ListingDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	listing := &models.Listing{Title: title, State: enums.ListingStateDraft}
	if _, err := s.repo.Create(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert listing")
	}
	s.logg.Info(s.logg.WithListingID(ctx, listing.ID.String()), "listing created")
	return s.Show(ctx, listing.ID)
}

func (s *service) Show(ctx context.Context, id uuid.UUID) (*ListingDTO, error) {
	listing, err := s.repo.FindWithImages(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	dto := FromModel(listing)
	return &dto, nil
}

func (s *service) UpdateMedia(ctx context.Context, id uuid.UUID, input MediaInput) (*ListingDTO, error) {
	if err := s.validateMedia(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithListingID(ctx, id.String())

	var detached []models.ListingImage
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		listing, err := txRepo.FindForUpdate(ctx, id)
		if err != nil {
			return mapLookupError(err, id)
		}
		if listing.State == enums.ListingStateClosed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "closed listings cannot be edited")
		}

		if err := s.ensureAttachable(ctx, tx, id, input.ImageIDs); err != nil {
			return err
		}
		if err := s.images.Attach(ctx, tx, id, input.ImageIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: attach images")
		}
		detached, err = s.images.DetachExcept(ctx, tx, id, input.ImageIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: detach images")
		}

		if input.Title != nil {
			listing.Title = strings.TrimSpace(*input.Title)
		}
		listing.PublicData.ListingVideos = input.Videos
		if listing.PublicData.ListingVideos == nil {
			listing.PublicData.ListingVideos = []types.ListingVideo{}
		}
		listing.UpdatedAt = s.now()
		if err := txRepo.SavePublicData(ctx, listing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update listing")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing media")
	}

	if err := s.purge(ctx, detached); err != nil {
		s.logg.Error(ctx, "purge detached images", err)
	}

	s.emit(ctx, EventMediaUpdated, id, MediaUpdatedEvent{
		ListingID:  id,
		ImageIDs:   input.ImageIDs,
		VideoCount: len(input.Videos),
		Detached:   len(detached),
	})
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"images":   len(input.ImageIDs),
		"videos":   len(input.Videos),
		"detached": len(detached),
	}), "listing media updated")
	return s.Show(ctx, id)
}

func (s *service) validateMedia(input MediaInput) error {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.ImageIDs))
	for _, id := range input.ImageIDs {
		if _, ok := seen[id]; ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate image id").WithDetails(map[string]any{"image_id": id})
		}
		seen[id] = struct{}{}
	}
	if s.maxVideos > 0 && len(input.Videos) > s.maxVideos {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d videos allowed", s.maxVideos))
	}
	for i, v := range input.Videos {
		if v.ID != types.SlotKey(i) {
			return pkgerrors.New(pkgerrors.CodeValidation, "video slots must be contiguous").
				WithDetails(map[string]any{"index": i, "id": v.ID})
		}
		if strings.TrimSpace(v.Asset.URL) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "video url required").WithDetails(map[string]any{"id": v.ID})
		}
	}
	return nil
}

func (s *service) ensureAttachable(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, ids []uuid.UUID) error {
	rows, err := s.images.FindByIDs(ctx, tx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load images")
	}
	if len(rows) != len(ids) {
		found := make(map[uuid.UUID]struct{}, len(rows))
		for _, r := range rows {
			found[r.ID] = struct{}{}
		}
		missing := make([]string, 0, len(ids)-len(rows))
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, id.String())
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown image ids").WithDetails(map[string]any{"image_ids": missing})
	}
	for _, r := range rows {
		if r.ListingID != nil && *r.ListingID != listingID {
			return pkgerrors.New(pkgerrors.CodeConflict, "image belongs to another listing").
				WithDetails(map[string]any{"image_id": r.ID})
		}
	}
	return nil
}

// purge removes detached images from the bucket and the table.
func (s *service) purge(ctx context.Context, rows []models.ListingImage) error {
	var errs error
	for _, img := range rows {
		if err := s.objects.Delete(ctx, img.GCSKey); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete object %s: %w", img.GCSKey, err))
			continue
		}
		if err := s.images.Delete(ctx, img.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete image %s: %w", img.ID, err))
		}
	}
	return errs
}

func (s *service) Publish(ctx context.Context, id uuid.UUID) (*ListingDTO, error) {
	ctx = s.logg.WithListingID(ctx, id.String())
	var publishedAt time.Time
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		listing, err := txRepo.FindForUpdate(ctx, id)
		if err != nil {
			return mapLookupError(err, id)
		}
		if listing.State != enums.ListingStateDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not a draft").
				WithDetails(map[string]any{"state": listing.State})
		}
		var count int64
		if err := tx.WithContext(ctx).Model(&models.ListingImage{}).Where("listing_id = ?", id).Count(&count).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count images")
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "a listing needs at least one image to be published")
		}
		publishedAt = s.now()
		return txRepo.Update(ctx, id, map[string]any{
			"state":        enums.ListingStatePublished,
			"published_at": publishedAt,
			"updated_at":   publishedAt,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish listing")
	}

	s.emit(ctx, EventPublished, id, PublishedEvent{ListingID: id, PublishedAt: publishedAt})
	s.logg.Info(ctx, "listing published")
	return s.Show(ctx, id)
}

func (s *service) emit(ctx context.Context, eventType string, id uuid.UUID, data any) {
	err := s.events.Publish(ctx, pubsub.Event{
		Type:          eventType,
		AggregateType: aggregateListing,
		AggregateID:   id,
		Data:          data,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_type", eventType), "publish listing event", err)
	}
}

func mapLookupError(err error, id uuid.UUID) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found").WithDetails(map[string]any{"listing_id": id})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load listing")
}
