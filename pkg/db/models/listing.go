package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mahuwo/mahuwo-backend/pkg/enums"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

// Listing is the durable record a media draft is submitted into.
type Listing struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Title       string             `gorm:"column:title;not null"`
	State       enums.ListingState `gorm:"column:state;not null"`
	PublicData  types.PublicData   `gorm:"column:public_data;type:jsonb;serializer:json"`
	PublishedAt *time.Time         `gorm:"column:published_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Images []ListingImage `gorm:"foreignKey:ListingID"`
}

func (Listing) TableName() string { return "listings" }

func (l *Listing) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.State == "" {
		l.State = enums.ListingStateDraft
	}
	if !l.State.IsValid() {
		return fmt.Errorf("invalid listing state %q", l.State)
	}
	return nil
}
