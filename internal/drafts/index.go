package drafts

// DefaultVideoCapacity bounds the number of videos on a listing.
const DefaultVideoCapacity = 5

// MediaIndex holds a draft's ordered images and video slots.
type MediaIndex struct {
	Images        []MediaItem `json:"images"`
	Videos        []MediaItem `json:"videos"`
	VideoCapacity int         `json:"video_capacity"`
}

// NewMediaIndex returns an empty index. A non-positive capacity falls back to
// DefaultVideoCapacity.
func NewMediaIndex(videoCapacity int) *MediaIndex {
	if videoCapacity <= 0 {
		videoCapacity = DefaultVideoCapacity
	}
	return &MediaIndex{
		Images:        []MediaItem{},
		Videos:        []MediaItem{},
		VideoCapacity: videoCapacity,
	}
}

func (m *MediaIndex) capacity() int {
	if m.VideoCapacity <= 0 {
		return DefaultVideoCapacity
	}
	return m.VideoCapacity
}
