package types

import (
	"fmt"
	"regexp"
	"strconv"
)

// VideoSlotField is the public-data field holding a listing's ordered videos.
const VideoSlotField = "listingVideos"

var slotKeyPattern = regexp.MustCompile(`^listingVideos\[(\d+)\]$`)

// VideoAsset is the descriptor returned by the hosted video upload service.
type VideoAsset struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// ListingVideo is one entry of publicData.listingVideos.
type ListingVideo struct {
	ID    string     `json:"id"`
	Asset VideoAsset `json:"asset"`
}

// PublicData is the listing's publicly readable extended data.
type PublicData struct {
	ListingVideos []ListingVideo `json:"listingVideos"`
}

// SlotKey returns the positional key for the video at index.
func SlotKey(index int) string {
	return fmt.Sprintf("%s[%d]", VideoSlotField, index)
}

// ParseSlotKey extracts the position from a listingVideos[N] key.
func ParseSlotKey(key string) (int, bool) {
	m := slotKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}
