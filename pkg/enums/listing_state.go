package enums

// ListingState tracks whether a listing is still being created or is live.
type ListingState string

const (
	ListingStateDraft     ListingState = "draft"
	ListingStatePublished ListingState = "published"
	ListingStateClosed    ListingState = "closed"
)

var validListingStates = []ListingState{
	ListingStateDraft,
	ListingStatePublished,
	ListingStateClosed,
}

// String returns the literal string for the state.
func (s ListingState) String() string {
	return string(s)
}

// IsValid reports whether the state is known.
func (s ListingState) IsValid() bool {
	for _, candidate := range validListingStates {
		if candidate == s {
			return true
		}
	}
	return false
}
