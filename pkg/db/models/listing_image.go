package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingImage is an uploaded image object. ListingID stays nil until a draft
// submit attaches the image to a listing.
type ListingImage struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ListingID *uuid.UUID `gorm:"column:listing_id;type:uuid;index"`
	GCSKey    string     `gorm:"column:gcs_key;not null;uniqueIndex"`
	URL       string     `gorm:"column:url;not null"`
	FileName  string     `gorm:"column:file_name;not null"`
	MimeType  string     `gorm:"column:mime_type;not null"`
	SizeBytes int64      `gorm:"column:size_bytes;not null"`
	Position  int        `gorm:"column:position;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ListingImage) TableName() string { return "listing_images" }

func (i *ListingImage) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
