package drafts

import (
	"sort"
	"time"
)

// Draft is the session-scoped media state of one listing being edited.
type Draft struct {
	ID        string                    `json:"id"`
	ListingID string                    `json:"listing_id"`
	Media     *MediaIndex               `json:"media"`
	Snapshot  Snapshot                  `json:"snapshot"`
	Flags     Flags                     `json:"flags"`
	Errors    map[ErrorKind]ErrorRecord `json:"errors,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// NewDraft returns an empty draft for listingID.
func NewDraft(id, listingID string, videoCapacity int, now time.Time) *Draft {
	return &Draft{
		ID:        id,
		ListingID: listingID,
		Media:     NewMediaIndex(videoCapacity),
		Snapshot:  Snapshot{},
		Errors:    map[ErrorKind]ErrorRecord{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Readiness derives the submit state from the draft.
func (d *Draft) Readiness() Readiness {
	return ComputeReadiness(d.Media.Images, d.Snapshot, ValidateImages(d.Media.Images) == nil, d.Flags)
}

func (d *Draft) recordError(kind ErrorKind, cause error, at time.Time) {
	if d.Errors == nil {
		d.Errors = map[ErrorKind]ErrorRecord{}
	}
	d.Errors[kind] = newErrorRecord(kind, cause, at)
}

func (d *Draft) clearErrors(kinds ...ErrorKind) {
	for _, k := range kinds {
		delete(d.Errors, k)
	}
}

// ImageConfig is forwarded to the upload service and echoed to clients for
// thumbnail rendering.
type ImageConfig struct {
	AspectWidth   int    `json:"aspect_width"`
	AspectHeight  int    `json:"aspect_height"`
	VariantPrefix string `json:"variant_prefix,omitempty"`
}

// View is the client representation of a draft.
type View struct {
	ID              string        `json:"id"`
	ListingID       string        `json:"listing_id"`
	Images          []MediaItem   `json:"images"`
	Videos          []MediaItem   `json:"videos"`
	SlotKeys        []string      `json:"slot_keys"`
	Readiness       Readiness     `json:"readiness"`
	CanAddImage     bool          `json:"can_add_image"`
	CanAddVideo     bool          `json:"can_add_video"`
	NextVideoNumber int           `json:"next_video_number"`
	Errors          []ErrorRecord `json:"errors"`
	ImageConfig     ImageConfig   `json:"image_config"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewView renders d for clients.
func NewView(d *Draft, imageCfg ImageConfig) View {
	errs := make([]ErrorRecord, 0, len(d.Errors))
	for _, rec := range d.Errors {
		errs = append(errs, rec)
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Kind < errs[j].Kind })

	return View{
		ID:              d.ID,
		ListingID:       d.ListingID,
		Images:          d.Media.Images,
		Videos:          d.Media.Videos,
		SlotKeys:        d.Media.SlotKeys(),
		Readiness:       d.Readiness(),
		CanAddImage:     !d.Flags.UploadInProgress,
		CanAddVideo:     d.Media.CanAddVideo(),
		NextVideoNumber: d.Media.VideoCount() + 1,
		Errors:          errs,
		ImageConfig:     imageCfg,
		UpdatedAt:       d.UpdatedAt,
	}
}
