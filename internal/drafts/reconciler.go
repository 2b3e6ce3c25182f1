package drafts

import (
	"encoding/json"
	"slices"

	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

const (
	payloadImagesField     = "images"
	payloadPublicDataField = "publicData"
)

// Snapshot is the ordered comparable image ids at the last submit.
type Snapshot []string

// Flags are the externally driven states that gate submission.
type Flags struct {
	// Ready is set once a newly created listing was published.
	Ready bool `json:"ready"`
	// Updated is set after a successful edit submit.
	Updated          bool `json:"updated"`
	Disabled         bool `json:"disabled"`
	UpdateInProgress bool `json:"update_in_progress"`
	UploadInProgress bool `json:"upload_in_progress"`
}

// Readiness is the submit button state derived from a draft.
type Readiness struct {
	PristineSinceLastSubmit bool `json:"pristine_since_last_submit"`
	SubmitReady             bool `json:"submit_ready"`
	SubmitDisabled          bool `json:"submit_disabled"`
	SubmitInProgress        bool `json:"submit_in_progress"`
}

// ComputeReadiness compares the current images with the last submitted
// snapshot. The creation flow (ready) and edit flow (updated) share the
// same gate; ready wins when both are set.
func ComputeReadiness(current []MediaItem, lastSubmitted Snapshot, formValid bool, flags Flags) Readiness {
	ids := make([]string, len(current))
	for i, item := range current {
		ids[i] = item.ComparableID()
	}
	pristine := len(lastSubmitted) > 0 && slices.Equal(ids, lastSubmitted)

	return Readiness{
		PristineSinceLastSubmit: pristine,
		SubmitReady:             (flags.Updated && pristine) || flags.Ready,
		SubmitDisabled: !formValid ||
			flags.Disabled ||
			flags.UpdateInProgress ||
			flags.UploadInProgress ||
			flags.Ready,
		SubmitInProgress: flags.UpdateInProgress,
	}
}

// ValidateImages reports ImageRequired when no image is attached.
func ValidateImages(images []MediaItem) error {
	if len(images) == 0 {
		return newKindError(ErrorImageRequired, nil)
	}
	return nil
}

// Payload is what a submit hands to the listing update.
type Payload struct {
	Values     map[string]any   `json:"-"`
	Images     []string         `json:"-"`
	PublicData types.PublicData `json:"-"`
}

// AssemblePayload strips the intermediate listingVideos field from values
// and adds the confirmed image ids and the slot-ordered public videos.
func AssemblePayload(values map[string]any, index *MediaIndex) Payload {
	rest := make(map[string]any, len(values))
	for k, v := range values {
		switch k {
		case types.VideoSlotField, payloadImagesField, payloadPublicDataField:
			continue
		}
		rest[k] = v
	}
	return Payload{
		Values:     rest,
		Images:     index.ConfirmedImageIDs(),
		PublicData: types.PublicData{ListingVideos: index.ListingVideos()},
	}
}

// MarshalJSON renders the payload as one flat object.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Values)+2)
	for k, v := range p.Values {
		out[k] = v
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}
	videos := p.PublicData
	if videos.ListingVideos == nil {
		videos.ListingVideos = []types.ListingVideo{}
	}
	out[payloadImagesField] = images
	out[payloadPublicDataField] = videos
	return json.Marshal(out)
}

// StringValue returns values[key] when it is a string.
func (p Payload) StringValue(key string) (string, bool) {
	v, ok := p.Values[key].(string)
	return v, ok
}
