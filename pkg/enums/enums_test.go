package enums

import "testing"

func TestListingStateIsValid(t *testing.T) {
	for _, state := range []ListingState{ListingStateDraft, ListingStatePublished, ListingStateClosed} {
		if !state.IsValid() {
			t.Fatalf("expected %q to be valid", state)
		}
	}
	if ListingState("pending").IsValid() {
		t.Fatalf("pending should not be valid")
	}
}

func TestMediaKindString(t *testing.T) {
	if MediaKindVideo.String() != "video" || MediaKindImage.String() != "image" {
		t.Fatalf("unexpected kind literals %q %q", MediaKindVideo, MediaKindImage)
	}
}
