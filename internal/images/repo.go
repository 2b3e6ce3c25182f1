package images

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mahuwo/mahuwo-backend/internal/repo"
	"github.com/mahuwo/mahuwo-backend/pkg/db/models"
)

// Repository persists listing image rows.
type Repository struct {
	repo.Base
}

// NewRepository constructs an image repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, img *models.ListingImage) (*models.ListingImage, error) {
	if err := r.DB(ctx).Create(img).Error; err != nil {
		return nil, err
	}
	return img, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ListingImage, error) {
	var img models.ListingImage
	if err := r.DB(ctx).First(&img, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *Repository) FindByGCSKey(ctx context.Context, gcsKey string) (*models.ListingImage, error) {
	var img models.ListingImage
	if err := r.DB(ctx).First(&img, "gcs_key = ?", gcsKey).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

// FindByIDs returns the rows for ids in no particular order.
func (r *Repository) FindByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.ListingImage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.ListingImage
	if err := r.Conn(ctx, tx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListStagedBefore returns up to limit images never attached to a listing and
// created before cutoff, oldest first.
func (r *Repository) ListStagedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ListingImage, error) {
	var rows []models.ListingImage
	q := r.DB(ctx).Where("listing_id IS NULL AND created_at < ?", cutoff).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByListing returns the images attached to a listing in display order.
func (r *Repository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]models.ListingImage, error) {
	var rows []models.ListingImage
	err := r.DB(ctx).
		Where("listing_id = ?", listingID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Attach points each image at listingID with its slice index as position.
func (r *Repository) Attach(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, ordered []uuid.UUID) error {
	for pos, id := range ordered {
		err := r.Conn(ctx, tx).
			Model(&models.ListingImage{}).
			Where("id = ?", id).
			Updates(map[string]any{"listing_id": listingID, "position": pos}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// DetachExcept clears listing_id on the listing's images not in keep and
// returns the detached rows.
func (r *Repository) DetachExcept(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, keep []uuid.UUID) ([]models.ListingImage, error) {
	q := r.Conn(ctx, tx).Where("listing_id = ?", listingID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	var detached []models.ListingImage
	if err := q.Find(&detached).Error; err != nil {
		return nil, err
	}
	if len(detached) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(detached))
	for i, img := range detached {
		ids[i] = img.ID
	}
	err := r.Conn(ctx, tx).
		Model(&models.ListingImage{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"listing_id": nil, "position": 0}).Error
	if err != nil {
		return nil, err
	}
	return detached, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.ListingImage{}).Error
}
