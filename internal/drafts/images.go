package drafts

import (
	"time"

	"github.com/mahuwo/mahuwo-backend/pkg/enums"
)

// StageImage appends a pending image for fileName and returns it.
func (m *MediaIndex) StageImage(fileName string, now time.Time) MediaItem {
	id := PendingImageID(fileName, now)
	item := MediaItem{
		ID:      id,
		LocalID: id,
		Kind:    enums.MediaKindImage,
		Image:   &ImageAsset{FileName: fileName},
	}
	m.Images = append(m.Images, item)
	return item
}

// ConfirmImage turns the pending image localID into a confirmed one. It
// reports false when the pending image is gone, e.g. removed mid-upload.
func (m *MediaIndex) ConfirmImage(localID string, rec ImageRecord) bool {
	for i := range m.Images {
		item := &m.Images[i]
		if item.LocalID != localID || item.Confirmed {
			continue
		}
		item.ID = rec.ID
		item.Confirmed = true
		item.Image = &ImageAsset{
			URL:       rec.URL,
			FileName:  rec.FileName,
			MimeType:  rec.MimeType,
			SizeBytes: rec.SizeBytes,
		}
		return true
	}
	return false
}

// DropPendingImage removes the still-pending image localID.
func (m *MediaIndex) DropPendingImage(localID string) {
	for i, item := range m.Images {
		if item.LocalID == localID && !item.Confirmed {
			m.Images = append(m.Images[:i:i], m.Images[i+1:]...)
			return
		}
	}
}

// RemoveImage removes the image matching id by pending or server id.
func (m *MediaIndex) RemoveImage(id string) (MediaItem, bool) {
	for i, item := range m.Images {
		if item.matches(id) {
			m.Images = append(m.Images[:i:i], m.Images[i+1:]...)
			return item, true
		}
	}
	return MediaItem{}, false
}

// LoadImages replaces the image list with already stored images.
func (m *MediaIndex) LoadImages(records []ImageRecord) {
	m.Images = make([]MediaItem, 0, len(records))
	for _, rec := range records {
		m.Images = append(m.Images, MediaItem{
			ID:        rec.ID,
			Kind:      enums.MediaKindImage,
			Confirmed: true,
			Image: &ImageAsset{
				URL:       rec.URL,
				FileName:  rec.FileName,
				MimeType:  rec.MimeType,
				SizeBytes: rec.SizeBytes,
			},
		})
	}
}

// ImageIDs returns the comparable id of every image in order.
func (m *MediaIndex) ImageIDs() []string {
	ids := make([]string, len(m.Images))
	for i, item := range m.Images {
		ids[i] = item.ComparableID()
	}
	return ids
}

// ConfirmedImageIDs returns the server ids of confirmed images in order.
func (m *MediaIndex) ConfirmedImageIDs() []string {
	ids := make([]string, 0, len(m.Images))
	for _, item := range m.Images {
		if item.Confirmed {
			ids = append(ids, item.ID)
		}
	}
	return ids
}
