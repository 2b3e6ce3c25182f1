package gallery

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahuwo/mahuwo-backend/internal/listings"
	"github.com/mahuwo/mahuwo-backend/pkg/enums"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
)

type listingReader interface {
	Show(ctx context.Context, id uuid.UUID) (*listings.ListingDTO, error)
}

// Service serves public video galleries.
type Service interface {
	ForListing(ctx context.Context, listingID uuid.UUID, start int) (Gallery, error)
}

type service struct {
	listings listingReader
}

func NewService(listings listingReader) (Service, error) {
	if listings == nil {
		return nil, fmt.Errorf("listing reader required")
	}
	return &service{listings: listings}, nil
}

// ForListing returns the gallery of a published listing. Drafts are reported
// as not found.
func (s *service) ForListing(ctx context.Context, listingID uuid.UUID, start int) (Gallery, error) {
	listing, err := s.listings.Show(ctx, listingID)
	if err != nil {
		return Gallery{}, err
	}
	if listing.State != enums.ListingStatePublished {
		return Gallery{}, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return Build(listing.ID.String(), listing.PublicData.ListingVideos, start), nil
}
