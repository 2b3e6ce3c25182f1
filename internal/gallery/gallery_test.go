package gallery

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/mahuwo/mahuwo-backend/internal/listings"
	"github.com/mahuwo/mahuwo-backend/pkg/enums"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

type stubListings struct {
	listing *listings.ListingDTO
	err     error
}

func (s stubListings) Show(ctx context.Context, id uuid.UUID) (*listings.ListingDTO, error) {
	return s.listing, s.err
}

func listingVideos(urls ...string) []types.ListingVideo {
	out := make([]types.ListingVideo, len(urls))
	for i, u := range urls {
		out[i] = types.ListingVideo{ID: types.SlotKey(i), Asset: types.VideoAsset{URL: u, Type: "video"}}
	}
	return out
}

func TestBuildKeepsSlotOrder(t *testing.T) {
	g := Build("l-1", listingVideos("a.mp4", "", "c.mp4"), 1)

	if len(g.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(g.Items))
	}
	if g.Items[0].URL != "a.mp4" || g.Items[1].URL != "c.mp4" {
		t.Fatalf("unexpected order %+v", g.Items)
	}
	for _, item := range g.Items {
		if item.Type != "video" || item.Title != "" || item.Poster != item.URL {
			t.Fatalf("unexpected item %+v", item)
		}
	}
	if g.StartIndex != 1 || !g.ShowResourceCount {
		t.Fatalf("unexpected gallery %+v", g)
	}
	if g.Carousel.AutoplaySpeed != 4000 || g.Carousel.SpeedMS != 500 || g.Carousel.Infinite || !g.Carousel.Dots {
		t.Fatalf("unexpected carousel %+v", g.Carousel)
	}
}

func TestClampIndex(t *testing.T) {
	cases := []struct{ i, n, want int }{
		{0, 0, 0},
		{3, 0, 0},
		{-1, 3, 0},
		{2, 3, 2},
		{7, 3, 2},
	}
	for _, tc := range cases {
		if got := ClampIndex(tc.i, tc.n); got != tc.want {
			t.Fatalf("ClampIndex(%d, %d) = %d, want %d", tc.i, tc.n, got, tc.want)
		}
	}
}

func TestForListingHidesDrafts(t *testing.T) {
	id := uuid.New()
	draft := &listings.ListingDTO{ID: id, State: enums.ListingStateDraft, PublicData: types.PublicData{ListingVideos: listingVideos("a.mp4")}}
	svc, _ := NewService(stubListings{listing: draft})

	if _, err := svc.ForListing(context.Background(), id, 0); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for draft, got %v", err)
	}

	published := *draft
	published.State = enums.ListingStatePublished
	svc, _ = NewService(stubListings{listing: &published})
	g, err := svc.ForListing(context.Background(), id, 9)
	if err != nil {
		t.Fatalf("ForListing: %v", err)
	}
	if g.ListingID != id.String() || len(g.Items) != 1 || g.StartIndex != 0 {
		t.Fatalf("unexpected gallery %+v", g)
	}
}
