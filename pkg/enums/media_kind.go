package enums

// MediaKind distinguishes the assets a listing draft can hold.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// String returns the literal string for the kind.
func (m MediaKind) String() string {
	return string(m)
}
