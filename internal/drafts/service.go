package drafts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mahuwo/mahuwo-backend/pkg/config"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
	"github.com/mahuwo/mahuwo-backend/pkg/metrics"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

// UploadFile is an image file selected for upload.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadRequest pairs a file with the pending id it was staged under.
type UploadRequest struct {
	ID   string
	File UploadFile
}

// ImageUploader stores image files.
type ImageUploader interface {
	Upload(ctx context.Context, req UploadRequest, cfg ImageConfig) (ImageRecord, error)
}

// ImageRemover releases whatever an image id holds server side.
type ImageRemover interface {
	Release(ctx context.Context, imageID string) error
}

// ListingMedia is the stored media a draft is seeded from.
type ListingMedia struct {
	Images []ImageRecord
	Videos []types.ListingVideo
}

// ListingGateway is the durable listing store.
type ListingGateway interface {
	LoadMedia(ctx context.Context, listingID string) (ListingMedia, error)
	UpdateMedia(ctx context.Context, listingID string, payload Payload) error
	Publish(ctx context.Context, listingID string) error
	Show(ctx context.Context, listingID string) error
}

// Service exposes the media draft operations.
type Service interface {
	Start(ctx context.Context, listingID string) (*Draft, error)
	Get(ctx context.Context, id string) (*Draft, error)
	End(ctx context.Context, id string) error
	AddImage(ctx context.Context, id string, file *UploadFile) (*Draft, error)
	RemoveImage(ctx context.Context, id, imageID string) (*Draft, error)
	AttachVideo(ctx context.Context, id string, result WidgetResult) (*Draft, error)
	RemoveVideo(ctx context.Context, id, slotKey string) (*Draft, error)
	WidgetOptions(ctx context.Context, id string) (WidgetOptions, error)
	Submit(ctx context.Context, id string, values map[string]any) (*Draft, error)
	Publish(ctx context.Context, id string) (*Draft, error)
	View(d *Draft) View
}

// ServiceParams wires a Service.
type ServiceParams struct {
	Store         Store
	Uploader      ImageUploader
	Remover       ImageRemover
	Listings      ListingGateway
	VideoCapacity int
	Widget        config.VideoWidgetConfig
	Image         ImageConfig
	Metrics       *metrics.DraftMetrics
	Logger        *logger.Logger
}

type service struct {
	store         Store
	uploader      ImageUploader
	remover       ImageRemover
	listings      ListingGateway
	videoCapacity int
	widget        config.VideoWidgetConfig
	image         ImageConfig
	metrics       *metrics.DraftMetrics
	logg          *logger.Logger
	now           func() time.Time
	newID         func() string
}

// NewService constructs the draft service.
func NewService(p ServiceParams) (Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("draft store required")
	}
	if p.Uploader == nil {
		return nil, fmt.Errorf("image uploader required")
	}
	if p.Remover == nil {
		return nil, fmt.Errorf("image remover required")
	}
	if p.Listings == nil {
		return nil, fmt.Errorf("listing gateway required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	capacity := p.VideoCapacity
	if capacity <= 0 {
		capacity = DefaultVideoCapacity
	}
	return &service{
		store:         p.Store,
		uploader:      p.Uploader,
		remover:       p.Remover,
		listings:      p.Listings,
		videoCapacity: capacity,
		widget:        p.Widget,
		image:         p.Image,
		metrics:       p.Metrics,
		logg:          p.Logger,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}, nil
}

func (s *service) Start(ctx context.Context, listingID string) (*Draft, error) {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is required")
	}

	media, err := s.listings.LoadMedia(ctx, listingID)
	if err != nil {
		return nil, err
	}

	d := NewDraft(s.newID(), listingID, s.videoCapacity, s.now())
	d.Media.LoadImages(media.Images)
	d.Media.LoadVideos(media.Videos)
	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}

	ctx = s.logg.WithListingID(s.logg.WithDraftID(ctx, d.ID), listingID)
	s.logg.Info(ctx, "draft started")
	return d, nil
}

func (s *service) Get(ctx context.Context, id string) (*Draft, error) {
	return s.store.Get(ctx, id)
}

func (s *service) End(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithDraftID(ctx, id), "draft ended")
	return nil
}

func (s *service) AddImage(ctx context.Context, id string, file *UploadFile) (*Draft, error) {
	if file == nil || file.Body == nil || strings.TrimSpace(file.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image file is required")
	}
	ctx = s.logg.WithDraftID(ctx, id)

	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Flags.UploadInProgress {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "an image upload is already in progress")
	}

	staged := d.Media.StageImage(file.Name, s.now())
	d.Flags.UploadInProgress = true
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}

	started := time.Now()
	rec, uploadErr := s.uploader.Upload(ctx, UploadRequest{ID: staged.LocalID, File: *file}, s.image)

	// The request may be gone by now; the flag must still be cleared.
	bg := context.WithoutCancel(ctx)
	d, err = s.store.Get(bg, id)
	if err != nil {
		if uploadErr == nil {
			s.releaseQuietly(bg, rec.ID)
		}
		return nil, err
	}
	d.Flags.UploadInProgress = false

	if uploadErr != nil {
		s.metrics.ObserveImageUpload(metrics.ResultFailure, time.Since(started))
		kind := ErrorUploadFailed
		if IsUploadOverLimit(uploadErr) {
			kind = ErrorUploadOverLimit
		}
		d.Media.DropPendingImage(staged.LocalID)
		d.recordError(kind, uploadErr, s.now())
		d.clearErrors(otherUploadKind(kind))
		if err := s.save(bg, d); err != nil {
			return nil, err
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"pending_id": staged.LocalID, "error_kind": kind}), "image upload failed")
		return nil, newKindError(kind, uploadErr)
	}

	s.metrics.ObserveImageUpload(metrics.ResultSuccess, time.Since(started))
	if !d.Media.ConfirmImage(staged.LocalID, rec) {
		// removed while uploading
		s.releaseQuietly(bg, rec.ID)
	}
	d.clearErrors(ErrorUploadFailed, ErrorUploadOverLimit, ErrorImageRequired)
	if err := s.save(bg, d); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "image_id", rec.ID), "image uploaded")
	return d, nil
}

func otherUploadKind(kind ErrorKind) ErrorKind {
	if kind == ErrorUploadOverLimit {
		return ErrorUploadFailed
	}
	return ErrorUploadOverLimit
}

func (s *service) RemoveImage(ctx context.Context, id, imageID string) (*Draft, error) {
	ctx = s.logg.WithDraftID(ctx, id)
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item, ok := d.Media.RemoveImage(imageID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found in draft").WithDetails(map[string]any{"image_id": imageID})
	}
	if len(d.Media.Images) == 0 {
		d.recordError(ErrorImageRequired, nil, s.now())
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}

	if err := s.remover.Release(ctx, item.ComparableID()); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "image_id", item.ComparableID()), "release removed image", err)
	}
	return d, nil
}

func (s *service) AttachVideo(ctx context.Context, id string, result WidgetResult) (*Draft, error) {
	ctx = s.logg.WithDraftID(ctx, id)
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Media.AddVideo(result) {
		s.metrics.IncVideoSlot("attach", metrics.ResultNoop)
		s.logg.Debug(ctx, "ignored video widget callback")
		return d, nil
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	s.metrics.IncVideoSlot("attach", metrics.ResultSuccess)
	return d, nil
}

func (s *service) RemoveVideo(ctx context.Context, id, slotKey string) (*Draft, error) {
	ctx = s.logg.WithDraftID(ctx, id)
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Media.RemoveVideo(slotKey) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "video slot not found").WithDetails(map[string]any{"slot_key": slotKey})
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	s.metrics.IncVideoSlot("remove", metrics.ResultSuccess)
	return d, nil
}

func (s *service) WidgetOptions(ctx context.Context, id string) (WidgetOptions, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return WidgetOptions{}, err
	}
	if !d.Media.CanAddVideo() {
		return WidgetOptions{}, pkgerrors.New(pkgerrors.CodeStateConflict, "video capacity reached").
			WithDetails(map[string]any{"capacity": d.Media.capacity()})
	}
	return newWidgetOptions(s.widget, d.Media.RemainingVideoSlots()), nil
}

func (s *service) Submit(ctx context.Context, id string, values map[string]any) (*Draft, error) {
	ctx = s.logg.WithDraftID(ctx, id)
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ValidateImages(d.Media.Images); err != nil {
		d.recordError(ErrorImageRequired, nil, s.now())
		if saveErr := s.save(ctx, d); saveErr != nil {
			return nil, saveErr
		}
		s.metrics.IncSubmit("submit", metrics.ResultFailure)
		return nil, err
	}
	if d.Readiness().SubmitDisabled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "submit is disabled").
			WithDetails(map[string]any{"flags": d.Flags})
	}

	d.Snapshot = Snapshot(d.Media.ImageIDs())
	d.Flags.UpdateInProgress = true
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}

	payload := AssemblePayload(values, d.Media)
	updateErr := s.listings.UpdateMedia(ctx, d.ListingID, payload)

	bg := context.WithoutCancel(ctx)
	d, err = s.store.Get(bg, id)
	if err != nil {
		return nil, err
	}
	d.Flags.UpdateInProgress = false

	if updateErr != nil {
		d.Flags.Updated = false
		d.recordError(ErrorUpdateFailed, updateErr, s.now())
		if err := s.save(bg, d); err != nil {
			return nil, err
		}
		s.metrics.IncSubmit("submit", metrics.ResultFailure)
		s.logg.Error(ctx, "listing media update failed", updateErr)
		return nil, newKindError(ErrorUpdateFailed, updateErr)
	}

	d.Flags.Updated = true
	d.clearErrors(ErrorUpdateFailed, ErrorImageRequired)
	if err := s.save(bg, d); err != nil {
		return nil, err
	}
	s.metrics.IncSubmit("submit", metrics.ResultSuccess)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"images": len(payload.Images),
		"videos": len(payload.PublicData.ListingVideos),
	}), "draft submitted")
	return d, nil
}

func (s *service) Publish(ctx context.Context, id string) (*Draft, error) {
	ctx = s.logg.WithDraftID(ctx, id)
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Flags.Ready {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing already published in this session")
	}
	if d.Flags.UploadInProgress || d.Flags.UpdateInProgress {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "draft has an operation in progress")
	}

	if err := s.listings.Publish(ctx, d.ListingID); err != nil {
		return nil, s.failPublish(ctx, d, ErrorPublishFailed, err)
	}
	if err := s.listings.Show(ctx, d.ListingID); err != nil {
		return nil, s.failPublish(ctx, d, ErrorShowListingFailed, err)
	}

	d.Flags.Ready = true
	d.clearErrors(ErrorPublishFailed, ErrorShowListingFailed)
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	s.metrics.IncSubmit("publish", metrics.ResultSuccess)
	s.logg.Info(s.logg.WithListingID(ctx, d.ListingID), "listing published")
	return d, nil
}

func (s *service) failPublish(ctx context.Context, d *Draft, kind ErrorKind, cause error) error {
	d.recordError(kind, cause, s.now())
	if err := s.save(context.WithoutCancel(ctx), d); err != nil {
		return err
	}
	s.metrics.IncSubmit("publish", metrics.ResultFailure)
	s.logg.Error(s.logg.WithField(ctx, "error_kind", kind), "publish flow failed", cause)
	return newKindError(kind, cause)
}

func (s *service) View(d *Draft) View {
	return NewView(d, s.image)
}

func (s *service) save(ctx context.Context, d *Draft) error {
	d.UpdatedAt = s.now()
	return s.store.Save(ctx, d)
}

func (s *service) releaseQuietly(ctx context.Context, imageID string) {
	if imageID == "" {
		return
	}
	if err := s.remover.Release(ctx, imageID); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "image_id", imageID), "release orphaned image", err)
	}
}
