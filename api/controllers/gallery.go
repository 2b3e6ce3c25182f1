package controllers

import (
	"net/http"

	"github.com/mahuwo/mahuwo-backend/api/responses"
	"github.com/mahuwo/mahuwo-backend/api/validators"
	"github.com/mahuwo/mahuwo-backend/internal/gallery"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
)

// maxGalleryStart bounds the query value; the gallery clamps it to the item count.
const maxGalleryStart = 1000

// PublicListingVideos returns the video lightbox data of a published listing.
func PublicListingVideos(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}
		id, err := listingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseQueryInt(r, "start", 0, 0, maxGalleryStart)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		g, err := svc.ForListing(r.Context(), id, start)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, g)
	}
}
