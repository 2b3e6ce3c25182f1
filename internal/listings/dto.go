package listings

import (
	"time"

	"github.com/google/uuid"

	"github.com/mahuwo/mahuwo-backend/pkg/db/models"
	"github.com/mahuwo/mahuwo-backend/pkg/enums"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

// ListingDTO is the API shape of a listing.
type ListingDTO struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	State       enums.ListingState `json:"state"`
	Images      []ImageDTO         `json:"images"`
	PublicData  types.PublicData   `json:"public_data"`
	PublishedAt *time.Time         `json:"published_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type ImageDTO struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Position  int       `json:"position"`
}

// MediaUpdatedEvent is the payload of listing.media_updated.
type MediaUpdatedEvent struct {
	ListingID  uuid.UUID   `json:"listing_id"`
	ImageIDs   []uuid.UUID `json:"image_ids"`
	VideoCount int         `json:"video_count"`
	Detached   int         `json:"detached"`
}

// PublishedEvent is the payload of listing.published.
type PublishedEvent struct {
	ListingID   uuid.UUID `json:"listing_id"`
	PublishedAt time.Time `json:"published_at"`
}

func FromModel(m *models.Listing) ListingDTO {
	images := make([]ImageDTO, 0, len(m.Images))
	for _, img := range m.Images {
		images = append(images, ImageDTO{
			ID:        img.ID,
			URL:       img.URL,
			FileName:  img.FileName,
			MimeType:  img.MimeType,
			SizeBytes: img.SizeBytes,
			Position:  img.Position,
		})
	}
	publicData := m.PublicData
	if publicData.ListingVideos == nil {
		publicData.ListingVideos = []types.ListingVideo{}
	}
	return ListingDTO{
		ID:          m.ID,
		Title:       m.Title,
		State:       m.State,
		Images:      images,
		PublicData:  publicData,
		PublishedAt: m.PublishedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
