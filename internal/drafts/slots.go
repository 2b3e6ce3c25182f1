package drafts

import (
	"strings"

	"github.com/mahuwo/mahuwo-backend/pkg/enums"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

// VideoCount returns the number of attached videos.
func (m *MediaIndex) VideoCount() int { return len(m.Videos) }

// CanAddVideo reports whether another video fits.
func (m *MediaIndex) CanAddVideo() bool { return len(m.Videos) < m.capacity() }

// RemainingVideoSlots returns how many more videos fit.
func (m *MediaIndex) RemainingVideoSlots() int {
	if n := m.capacity() - len(m.Videos); n > 0 {
		return n
	}
	return 0
}

// AddVideo appends the asset from a widget callback in the next slot. It
// reports false and leaves the index untouched when the index is full or the
// callback carries no asset.
func (m *MediaIndex) AddVideo(result WidgetResult) bool {
	if !m.CanAddVideo() || !result.usable() {
		return false
	}
	m.Videos = append(m.Videos, MediaItem{
		Kind:      enums.MediaKindVideo,
		Confirmed: true,
		Video: &types.VideoAsset{
			URL:  strings.TrimSpace(result.Info.SecureURL),
			Type: result.Info.ResourceType,
		},
	})
	m.renumberVideos()
	return true
}

// RemoveVideo drops the video at slotKey and renumbers the rest from 0 in
// their prior order. It reports false when no slot has that key.
func (m *MediaIndex) RemoveVideo(slotKey string) bool {
	idx, ok := types.ParseSlotKey(slotKey)
	if !ok || idx >= len(m.Videos) {
		return false
	}
	m.Videos = append(m.Videos[:idx:idx], m.Videos[idx+1:]...)
	m.renumberVideos()
	return true
}

// SlotKeys returns the ordered slot keys.
func (m *MediaIndex) SlotKeys() []string {
	keys := make([]string, len(m.Videos))
	for i := range m.Videos {
		keys[i] = types.SlotKey(i)
	}
	return keys
}

// ListingVideos returns the videos as publicData.listingVideos entries in slot order.
func (m *MediaIndex) ListingVideos() []types.ListingVideo {
	out := make([]types.ListingVideo, 0, len(m.Videos))
	for i, item := range m.Videos {
		entry := types.ListingVideo{ID: types.SlotKey(i)}
		if item.Video != nil {
			entry.Asset = *item.Video
		}
		out = append(out, entry)
	}
	return out
}

// LoadVideos replaces the slots with stored listing videos, keeping their
// order and dropping entries without a url. Entries past capacity are kept so
// stored data is never truncated; the index simply refuses further adds.
func (m *MediaIndex) LoadVideos(videos []types.ListingVideo) {
	m.Videos = make([]MediaItem, 0, len(videos))
	for _, v := range videos {
		if strings.TrimSpace(v.Asset.URL) == "" {
			continue
		}
		asset := v.Asset
		m.Videos = append(m.Videos, MediaItem{
			Kind:      enums.MediaKindVideo,
			Confirmed: true,
			Video:     &asset,
		})
	}
	m.renumberVideos()
}

func (m *MediaIndex) renumberVideos() {
	for i := range m.Videos {
		m.Videos[i].ID = types.SlotKey(i)
	}
}
