package gallery

import (
	"strings"

	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

const itemTypeVideo = "video"

// Item is one lightbox entry.
type Item struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Poster string `json:"poster"`
}

// Carousel mirrors the slider settings of the listing page.
type Carousel struct {
	Infinite       bool `json:"infinite"`
	SpeedMS        int  `json:"speed"`
	SlidesToShow   int  `json:"slidesToShow"`
	SlidesToScroll int  `json:"slidesToScroll"`
	SwipeToSlide   bool `json:"swipeToSlide"`
	Swipe          bool `json:"swipe"`
	Autoplay       bool `json:"autoplay"`
	AutoplaySpeed  int  `json:"autoplaySpeed"`
	Dots           bool `json:"dots"`
}

// DefaultCarousel is the slider configuration used on listing pages.
var DefaultCarousel = Carousel{
	Infinite:       false,
	SpeedMS:        500,
	SlidesToShow:   1,
	SlidesToScroll: 1,
	SwipeToSlide:   true,
	Swipe:          true,
	Autoplay:       true,
	AutoplaySpeed:  4000,
	Dots:           true,
}

// Gallery is the read model behind a listing's video section.
type Gallery struct {
	ListingID         string   `json:"listing_id"`
	Items             []Item   `json:"items"`
	StartIndex        int      `json:"start_index"`
	ShowResourceCount bool     `json:"show_resource_count"`
	Carousel          Carousel `json:"carousel"`
}

// Build turns stored listing videos into gallery items in slot order. Videos
// without a url are skipped.
func Build(listingID string, videos []types.ListingVideo, start int) Gallery {
	items := make([]Item, 0, len(videos))
	for _, v := range videos {
		url := strings.TrimSpace(v.Asset.URL)
		if url == "" {
			continue
		}
		items = append(items, Item{
			ID:     v.ID,
			URL:    url,
			Type:   itemTypeVideo,
			Title:  "",
			Poster: url,
		})
	}
	return Gallery{
		ListingID:         listingID,
		Items:             items,
		StartIndex:        ClampIndex(start, len(items)),
		ShowResourceCount: true,
		Carousel:          DefaultCarousel,
	}
}

// ClampIndex keeps i inside [0, n).
func ClampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
