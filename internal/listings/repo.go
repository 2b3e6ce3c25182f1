package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mahuwo/mahuwo-backend/internal/repo"
	"github.com/mahuwo/mahuwo-backend/pkg/db/models"
)

// Repository persists listings.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(tx)}
}

func (r *Repository) Create(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	if err := r.DB(ctx).Create(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

// FindByID loads the listing without images.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.DB(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindForUpdate locks the listing row for the rest of the transaction.
func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	q := r.DB(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindWithImages loads the listing and its images in display order.
func (r *Repository) FindWithImages(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.DB(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Update writes the given columns.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.DB(ctx).Model(&models.Listing{}).Where("id = ?", id).Updates(fields).Error
}

// SavePublicData replaces the public data document.
func (r *Repository) SavePublicData(ctx context.Context, listing *models.Listing) error {
	return r.DB(ctx).Model(listing).Select("public_data", "title", "updated_at").Updates(listing).Error
}
