package listings

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mahuwo/mahuwo-backend/internal/drafts"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
)

const titleField = "title"

// DraftGateway exposes the listing service to media drafts.
type DraftGateway struct {
	svc Service
}

var _ drafts.ListingGateway = (*DraftGateway)(nil)

func NewDraftGateway(svc Service) *DraftGateway {
	return &DraftGateway{svc: svc}
}

func (g *DraftGateway) LoadMedia(ctx context.Context, listingID string) (drafts.ListingMedia, error) {
	id, err := parseListingID(listingID)
	if err != nil {
		return drafts.ListingMedia{}, err
	}
	listing, err := g.svc.Show(ctx, id)
	if err != nil {
		return drafts.ListingMedia{}, err
	}
	records := make([]drafts.ImageRecord, 0, len(listing.Images))
	for _, img := range listing.Images {
		records = append(records, drafts.ImageRecord{
			ID:        img.ID.String(),
			URL:       img.URL,
			FileName:  img.FileName,
			MimeType:  img.MimeType,
			SizeBytes: img.SizeBytes,
		})
	}
	return drafts.ListingMedia{Images: records, Videos: listing.PublicData.ListingVideos}, nil
}

func (g *DraftGateway) UpdateMedia(ctx context.Context, listingID string, payload drafts.Payload) error {
	id, err := parseListingID(listingID)
	if err != nil {
		return err
	}
	imageIDs := make([]uuid.UUID, 0, len(payload.Images))
	for _, raw := range payload.Images {
		imageID, err := uuid.Parse(raw)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid image id").WithDetails(map[string]any{"image_id": raw})
		}
		imageIDs = append(imageIDs, imageID)
	}
	input := MediaInput{ImageIDs: imageIDs, Videos: payload.PublicData.ListingVideos}
	if title, ok := payload.StringValue(titleField); ok {
		input.Title = &title
	}
	_, err = g.svc.UpdateMedia(ctx, id, input)
	return err
}

func (g *DraftGateway) Publish(ctx context.Context, listingID string) error {
	id, err := parseListingID(listingID)
	if err != nil {
		return err
	}
	_, err = g.svc.Publish(ctx, id)
	return err
}

func (g *DraftGateway) Show(ctx context.Context, listingID string) error {
	id, err := parseListingID(listingID)
	if err != nil {
		return err
	}
	_, err = g.svc.Show(ctx, id)
	return err
}

func parseListingID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing id").WithDetails(map[string]any{"listing_id": raw})
	}
	return id, nil
}
