package drafts

import (
	"fmt"
	"strings"
	"time"

	"github.com/mahuwo/mahuwo-backend/pkg/enums"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

// ImageAsset describes an uploaded image.
type ImageAsset struct {
	URL       string `json:"url,omitempty"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// MediaItem is a single image or video attached to a draft.
//
// Images start pending under a locally generated id and become confirmed
// once the upload service assigns a server id. Videos are confirmed on
// arrival and their ID is always the slot key of their position.
type MediaItem struct {
	ID        string            `json:"id"`
	LocalID   string            `json:"local_id,omitempty"`
	Kind      enums.MediaKind   `json:"kind"`
	Confirmed bool              `json:"confirmed"`
	Image     *ImageAsset       `json:"image,omitempty"`
	Video     *types.VideoAsset `json:"video,omitempty"`
}

// Pending reports whether the item still waits for server confirmation.
func (m MediaItem) Pending() bool { return !m.Confirmed }

// ComparableID is the id used for snapshot equality: the server id once
// confirmed, the pending id before.
func (m MediaItem) ComparableID() string {
	if m.Confirmed && m.ID != "" {
		return m.ID
	}
	if m.LocalID != "" {
		return m.LocalID
	}
	return m.ID
}

// matches reports whether id refers to this item by pending or server id.
func (m MediaItem) matches(id string) bool {
	if id == "" {
		return false
	}
	return m.ID == id || m.LocalID == id
}

// PendingImageID builds the local id for a staged image. Two files with the
// same name staged in the same millisecond collide.
func PendingImageID(fileName string, now time.Time) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s_%d", name, now.UnixMilli())
}

// ImageRecord is what the image upload service returns for a stored image.
type ImageRecord struct {
	ID        string
	URL       string
	FileName  string
	MimeType  string
	SizeBytes int64
}
