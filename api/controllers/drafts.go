package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mahuwo/mahuwo-backend/api/responses"
	"github.com/mahuwo/mahuwo-backend/api/validators"
	"github.com/mahuwo/mahuwo-backend/internal/drafts"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
)

const imageFormField = "file"

type draftStartRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
}

type draftSubmitRequest struct {
	Values map[string]any `json:"values"`
}

func draftID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "draftId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "draft id required")
	}
	return id, nil
}

// mediaParam returns the decoded path parameter. chi matches on the raw path,
// so slot keys sent as listingVideos%5B1%5D arrive still escaped.
func mediaParam(r *http.Request, name string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return v, nil
}

func requireDraftService(svc drafts.Service) error {
	if svc == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "draft service unavailable")
	}
	return nil
}

// DraftStart opens a media draft seeded from the listing's stored media.
func DraftStart(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireDraftService(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload draftStartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		d, err := svc.Start(r.Context(), payload.ListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, svc.View(d))
	}
}

func DraftGet(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		d, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.View(d))
	}
}

// DraftEnd discards the draft session.
func DraftEnd(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.End(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DraftAddImage streams the multipart "file" part into the draft.
func DraftAddImage(svc drafts.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := validators.OpenMultipartFile(w, r, imageFormField, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		d, err := svc.AddImage(r.Context(), id, &drafts.UploadFile{
			Name:        file.Name,
			ContentType: file.ContentType,
			Body:        file.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, svc.View(d))
	}
}

func DraftRemoveImage(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		var imageId string
		if err == nil {
			imageId, err = mediaParam(r, "imageId")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		d, err := svc.RemoveImage(r.Context(), id, imageId)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.View(d))
	}
}

// DraftWidgetOptions returns the video widget configuration for the draft's
// remaining capacity.
func DraftWidgetOptions(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		opts, err := svc.WidgetOptions(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, opts)
	}
}

// DraftAttachVideo records a widget callback. Callbacks without a usable asset
// leave the draft unchanged.
func DraftAttachVideo(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var result drafts.WidgetResult
		if err := validators.DecodeCallbackBody(r, &result); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		d, err := svc.AttachVideo(r.Context(), id, result)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.View(d))
	}
}

func DraftRemoveVideo(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		var slotKey string
		if err == nil {
			slotKey, err = mediaParam(r, "slotKey")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		d, err := svc.RemoveVideo(r.Context(), id, slotKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.View(d))
	}
}

// DraftSubmit sends the draft media together with the form values.
func DraftSubmit(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload draftSubmitRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		d, err := svc.Submit(r.Context(), id, payload.Values)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.View(d))
	}
}

func DraftPublish(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := draftID(r)
		if err == nil {
			err = requireDraftService(svc)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		d, err := svc.Publish(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.View(d))
	}
}
