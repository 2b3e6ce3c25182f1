package drafts

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mahuwo/mahuwo-backend/pkg/config"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

type stubUploader struct {
	rec    ImageRecord
	err    error
	calls  []UploadRequest
	cfg    ImageConfig
	during func()
}

func (s *stubUploader) Upload(ctx context.Context, req UploadRequest, cfg ImageConfig) (ImageRecord, error) {
	s.calls = append(s.calls, req)
	s.cfg = cfg
	if s.during != nil {
		s.during()
	}
	return s.rec, s.err
}

type stubRemover struct {
	released []string
	err      error
}

func (s *stubRemover) Release(ctx context.Context, imageID string) error {
	s.released = append(s.released, imageID)
	return s.err
}

type stubListings struct {
	media      ListingMedia
	loadErr    error
	updateErr  error
	publishErr error
	showErr    error
	payloads   []Payload
	published  int
	shown      int
}

func (s *stubListings) LoadMedia(ctx context.Context, listingID string) (ListingMedia, error) {
	return s.media, s.loadErr
}

func (s *stubListings) UpdateMedia(ctx context.Context, listingID string, payload Payload) error {
	s.payloads = append(s.payloads, payload)
	return s.updateErr
}

func (s *stubListings) Publish(ctx context.Context, listingID string) error {
	s.published++
	return s.publishErr
}

func (s *stubListings) Show(ctx context.Context, listingID string) error {
	s.shown++
	return s.showErr
}

type harness struct {
	svc      *service
	store    *MemoryStore
	uploader *stubUploader
	remover  *stubRemover
	listings *stubListings
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    NewMemoryStore(time.Hour, 0),
		uploader: &stubUploader{rec: ImageRecord{ID: "srv-1", URL: "https://cdn/a.jpg", FileName: "a.jpg", MimeType: "image/jpeg"}},
		remover:  &stubRemover{},
		listings: &stubListings{},
	}
	svc, err := NewService(ServiceParams{
		Store:         h.store,
		Uploader:      h.uploader,
		Remover:       h.remover,
		Listings:      h.listings,
		VideoCapacity: 5,
		Widget: config.VideoWidgetConfig{
			CloudName:        "mahuwo",
			UploadPreset:     "mahuwo",
			MaxVideoFileSize: 100000000,
			AllowedFormats:   []string{"mp4", " "},
		},
		Image:  ImageConfig{AspectWidth: 1, AspectHeight: 1, VariantPrefix: "listing-card"},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc.(*service)
	ids := 0
	h.svc.newID = func() string {
		ids++
		return "draft-" + string(rune('0'+ids))
	}
	h.svc.now = func() time.Time { return time.UnixMilli(1700000000000).UTC() }
	return h
}

func (h *harness) start(t *testing.T) *Draft {
	t.Helper()
	d, err := h.svc.Start(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return d
}

func file(name string) *UploadFile {
	return &UploadFile{Name: name, ContentType: "image/jpeg", Size: 4, Body: strings.NewReader("jpeg")}
}

func TestNewServiceValidatesDeps(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error for missing deps")
	}
}

func TestStartSeedsFromListing(t *testing.T) {
	h := newHarness(t)
	h.listings.media = ListingMedia{
		Images: []ImageRecord{{ID: "img-1"}},
		Videos: []types.ListingVideo{{ID: "listingVideos[0]", Asset: types.VideoAsset{URL: "a.mp4", Type: "video"}}},
	}
	d := h.start(t)
	if len(d.Media.Images) != 1 || !d.Media.Images[0].Confirmed || len(d.Media.Videos) != 1 {
		t.Fatalf("unexpected seeded draft %+v", d.Media)
	}
	if _, err := h.svc.Get(context.Background(), d.ID); err != nil {
		t.Fatalf("draft should be stored: %v", err)
	}

	if _, err := h.svc.Start(context.Background(), " "); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	h.listings.loadErr = pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	if _, err := h.svc.Start(context.Background(), "missing"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddImageConfirmsAndClearsFlag(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)

	var flagDuringUpload bool
	h.uploader.during = func() {
		stored, _ := h.store.Get(context.Background(), d.ID)
		flagDuringUpload = stored.Flags.UploadInProgress
	}

	got, err := h.svc.AddImage(context.Background(), d.ID, file("a.jpg"))
	if err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if !flagDuringUpload {
		t.Fatal("upload flag should be persisted while uploading")
	}
	if got.Flags.UploadInProgress {
		t.Fatal("upload flag should clear after upload")
	}
	if h.uploader.calls[0].ID != "a.jpg_1700000000000" {
		t.Fatalf("unexpected pending id %q", h.uploader.calls[0].ID)
	}
	if h.uploader.cfg.VariantPrefix != "listing-card" {
		t.Fatalf("image config not forwarded: %+v", h.uploader.cfg)
	}
	if ids := got.Media.ConfirmedImageIDs(); len(ids) != 1 || ids[0] != "srv-1" {
		t.Fatalf("expected confirmed srv-1, got %v", ids)
	}
}

func TestAddImageRejectsMissingFile(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)
	for _, f := range []*UploadFile{nil, {Name: "a.jpg"}, {Body: strings.NewReader("x")}} {
		if _, err := h.svc.AddImage(context.Background(), d.ID, f); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
	if len(h.uploader.calls) != 0 {
		t.Fatal("uploader must not be called")
	}
}

func TestAddImageRefusedWhileUploading(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)
	d.Flags.UploadInProgress = true
	_ = h.store.Save(context.Background(), d)

	if _, err := h.svc.AddImage(context.Background(), d.ID, file("b.jpg")); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAddImageClassifiesFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"over limit", pkgerrors.New(pkgerrors.CodeUploadLimit, "too big"), ErrorUploadOverLimit},
		{"generic", errors.New("network"), ErrorUploadFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			d := h.start(t)
			h.uploader.err = tc.err

			_, err := h.svc.AddImage(context.Background(), d.ID, file("a.jpg"))
			kind, ok := KindOf(err)
			if !ok || kind != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}

			stored, _ := h.svc.Get(context.Background(), d.ID)
			if stored.Flags.UploadInProgress {
				t.Fatal("flag must clear after failure")
			}
			if len(stored.Media.Images) != 0 {
				t.Fatal("failed image must be dropped")
			}
			if _, ok := stored.Errors[tc.kind]; !ok {
				t.Fatalf("expected %s recorded, got %v", tc.kind, stored.Errors)
			}

			h.uploader.err = nil
			stored, err = h.svc.AddImage(context.Background(), d.ID, file("a.jpg"))
			if err != nil {
				t.Fatalf("retry: %v", err)
			}
			if len(stored.Errors) != 0 {
				t.Fatalf("success should clear upload errors, got %v", stored.Errors)
			}
		})
	}
}

func TestAddImageRejectedContentIsNotRetryable(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)
	h.uploader.err = pkgerrors.New(pkgerrors.CodeValidation, "image file is empty")

	_, err := h.svc.AddImage(context.Background(), d.ID, file("a.jpg"))
	if kind, _ := KindOf(err); kind != ErrorUploadFailed {
		t.Fatalf("expected upload failed kind, got %v", err)
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestAddImageReleasesWhenRemovedMidUpload(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)
	h.uploader.during = func() {
		if _, err := h.svc.RemoveImage(context.Background(), d.ID, "a.jpg_1700000000000"); err != nil {
			t.Fatalf("remove during upload: %v", err)
		}
	}

	got, err := h.svc.AddImage(context.Background(), d.ID, file("a.jpg"))
	if err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if len(got.Media.Images) != 0 {
		t.Fatalf("removed image must not come back: %+v", got.Media.Images)
	}
	want := []string{"a.jpg_1700000000000", "srv-1"}
	if len(h.remover.released) != 2 || h.remover.released[0] != want[0] || h.remover.released[1] != want[1] {
		t.Fatalf("expected releases %v, got %v", want, h.remover.released)
	}
}

func TestAddImageCanceledRequestStillClearsFlag(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.uploader.during = cancel
	h.uploader.err = context.Canceled

	if _, err := h.svc.AddImage(ctx, d.ID, file("a.jpg")); err == nil {
		t.Fatal("expected error")
	}
	stored, _ := h.svc.Get(context.Background(), d.ID)
	if stored.Flags.UploadInProgress {
		t.Fatal("flag must clear even when the request is canceled")
	}
}

func TestRemoveImageInvokesCollaboratorOnce(t *testing.T) {
	h := newHarness(t)
	h.listings.media = ListingMedia{Images: []ImageRecord{{ID: "img-1"}, {ID: "img-2"}, {ID: "img-3"}}}
	d := h.start(t)

	got, err := h.svc.RemoveImage(context.Background(), d.ID, "img-2")
	if err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}
	if ids := got.Media.ImageIDs(); len(ids) != 2 || ids[0] != "img-1" || ids[1] != "img-3" {
		t.Fatalf("unexpected images %v", ids)
	}
	if len(h.remover.released) != 1 || h.remover.released[0] != "img-2" {
		t.Fatalf("expected one release of img-2, got %v", h.remover.released)
	}

	if _, err := h.svc.RemoveImage(context.Background(), d.ID, "img-2"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second removal, got %v", err)
	}
	if len(h.remover.released) != 1 {
		t.Fatal("collaborator must not be called for unknown ids")
	}
}

func TestRemoveLastImageRecordsImageRequired(t *testing.T) {
	h := newHarness(t)
	h.listings.media = ListingMedia{Images: []ImageRecord{{ID: "img-1"}}}
	h.remover.err = errors.New("storage down")
	d := h.start(t)

	got, err := h.svc.RemoveImage(context.Background(), d.ID, "img-1")
	if err != nil {
		t.Fatalf("release failures are logged, not returned: %v", err)
	}
	if _, ok := got.Errors[ErrorImageRequired]; !ok {
		t.Fatal("expected image required recorded")
	}
}

func TestVideoAttachRemoveAndWidget(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)
	ctx := context.Background()

	opts, err := h.svc.WidgetOptions(ctx, d.ID)
	if err != nil {
		t.Fatalf("WidgetOptions: %v", err)
	}
	if opts.MaxFiles != 5 || opts.ResourceType != "video" || len(opts.AllowedFormats) != 1 || opts.CloudName != "mahuwo" {
		t.Fatalf("unexpected widget options %+v", opts)
	}

	for _, u := range []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4", "f.mp4"} {
		if _, err := h.svc.AttachVideo(ctx, d.ID, widgetResult(u)); err != nil {
			t.Fatalf("AttachVideo: %v", err)
		}
	}
	got, _ := h.svc.Get(ctx, d.ID)
	if got.Media.VideoCount() != 5 {
		t.Fatalf("expected capacity to cap videos, got %d", got.Media.VideoCount())
	}
	if _, err := h.svc.WidgetOptions(ctx, d.ID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected widget refused at capacity, got %v", err)
	}

	got, err = h.svc.RemoveVideo(ctx, d.ID, "listingVideos[1]")
	if err != nil {
		t.Fatalf("RemoveVideo: %v", err)
	}
	if urls := videoURLs(got.Media); strings.Join(urls, ",") != "a.mp4,c.mp4,d.mp4,e.mp4" {
		t.Fatalf("unexpected order %v", urls)
	}
	if _, err := h.svc.RemoveVideo(ctx, d.ID, "listingVideos[4]"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	opts, _ = h.svc.WidgetOptions(ctx, d.ID)
	if opts.MaxFiles != 1 {
		t.Fatalf("expected one remaining slot, got %d", opts.MaxFiles)
	}

	before, _ := h.svc.Get(ctx, d.ID)
	after, err := h.svc.AttachVideo(ctx, d.ID, WidgetResult{Event: "close"})
	if err != nil || after.Media.VideoCount() != before.Media.VideoCount() {
		t.Fatalf("malformed callback should be a no-op, err=%v", err)
	}
}

func TestSubmitFlow(t *testing.T) {
	h := newHarness(t)
	h.listings.media = ListingMedia{Images: []ImageRecord{{ID: "img-1"}}}
	d := h.start(t)
	ctx := context.Background()
	h.svc.AttachVideo(ctx, d.ID, widgetResult("a.mp4"))

	got, err := h.svc.Submit(ctx, d.ID, map[string]any{"title": "Cabin", "listingVideos": []any{}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(h.listings.payloads) != 1 {
		t.Fatalf("expected one update, got %d", len(h.listings.payloads))
	}
	p := h.listings.payloads[0]
	if _, ok := p.Values["listingVideos"]; ok {
		t.Fatal("listingVideos must be stripped")
	}
	if len(p.Images) != 1 || p.PublicData.ListingVideos[0].ID != "listingVideos[0]" {
		t.Fatalf("unexpected payload %+v", p)
	}
	r := got.Readiness()
	if !r.SubmitReady || r.SubmitDisabled || got.Flags.UpdateInProgress {
		t.Fatalf("expected ready after submit, got %+v flags=%+v", r, got.Flags)
	}

	got, _ = h.svc.AttachVideo(ctx, d.ID, widgetResult("b.mp4"))
	if !got.Readiness().SubmitReady {
		t.Fatal("video changes do not affect image pristine state")
	}
}

func TestSubmitRequiresImage(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)

	_, err := h.svc.Submit(context.Background(), d.ID, nil)
	if kind, _ := KindOf(err); kind != ErrorImageRequired {
		t.Fatalf("expected image required, got %v", err)
	}
	if len(h.listings.payloads) != 0 {
		t.Fatal("listing must not be updated")
	}
	stored, _ := h.svc.Get(context.Background(), d.ID)
	if _, ok := stored.Errors[ErrorImageRequired]; !ok {
		t.Fatal("expected image required recorded")
	}
}

func TestSubmitDisabledWhileUploading(t *testing.T) {
	h := newHarness(t)
	h.listings.media = ListingMedia{Images: []ImageRecord{{ID: "img-1"}}}
	d := h.start(t)
	d.Flags.UploadInProgress = true
	_ = h.store.Save(context.Background(), d)

	if _, err := h.svc.Submit(context.Background(), d.ID, nil); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestSubmitUpdateFailure(t *testing.T) {
	h := newHarness(t)
	h.listings.media = ListingMedia{Images: []ImageRecord{{ID: "img-1"}}}
	h.listings.updateErr = errors.New("db down")
	d := h.start(t)

	_, err := h.svc.Submit(context.Background(), d.ID, nil)
	if kind, _ := KindOf(err); kind != ErrorUpdateFailed {
		t.Fatalf("expected update failed, got %v", err)
	}
	stored, _ := h.svc.Get(context.Background(), d.ID)
	if stored.Flags.UpdateInProgress || stored.Flags.Updated {
		t.Fatalf("unexpected flags %+v", stored.Flags)
	}
	if _, ok := stored.Errors[ErrorUpdateFailed]; !ok {
		t.Fatal("expected update failed recorded")
	}

	h.listings.updateErr = nil
	stored, err = h.svc.Submit(context.Background(), d.ID, nil)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, ok := stored.Errors[ErrorUpdateFailed]; ok {
		t.Fatal("success should clear update failed")
	}
}

func TestPublishFlow(t *testing.T) {
	cases := []struct {
		name       string
		publishErr error
		showErr    error
		wantKind   ErrorKind
	}{
		{"publish fails", errors.New("x"), nil, ErrorPublishFailed},
		{"show fails", nil, errors.New("y"), ErrorShowListingFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			d := h.start(t)
			h.listings.publishErr = tc.publishErr
			h.listings.showErr = tc.showErr

			_, err := h.svc.Publish(context.Background(), d.ID)
			if kind, _ := KindOf(err); kind != tc.wantKind {
				t.Fatalf("expected %s, got %v", tc.wantKind, err)
			}
			stored, _ := h.svc.Get(context.Background(), d.ID)
			if stored.Flags.Ready {
				t.Fatal("ready must stay unset on failure")
			}
			if _, ok := stored.Errors[tc.wantKind]; !ok {
				t.Fatalf("expected %s recorded", tc.wantKind)
			}
		})
	}

	h := newHarness(t)
	h.listings.media = ListingMedia{Images: []ImageRecord{{ID: "img-1"}}}
	d := h.start(t)
	got, err := h.svc.Publish(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	r := got.Readiness()
	if !got.Flags.Ready || !r.SubmitReady || !r.SubmitDisabled {
		t.Fatalf("expected ready and disabled, got %+v", r)
	}
	if _, err := h.svc.Publish(context.Background(), d.ID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("second publish should conflict, got %v", err)
	}
	if h.listings.published != 1 || h.listings.shown != 1 {
		t.Fatalf("unexpected calls publish=%d show=%d", h.listings.published, h.listings.shown)
	}
}

func TestEndDeletesDraft(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)
	if err := h.svc.End(context.Background(), d.ID); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := h.svc.Get(context.Background(), d.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := h.svc.End(context.Background(), d.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second end, got %v", err)
	}
}

func TestViewReportsAffordances(t *testing.T) {
	h := newHarness(t)
	d := h.start(t)
	v := h.svc.View(d)
	if !v.CanAddImage || !v.CanAddVideo || v.NextVideoNumber != 1 || v.ImageConfig.AspectWidth != 1 {
		t.Fatalf("unexpected view %+v", v)
	}
	if !v.Readiness.SubmitDisabled {
		t.Fatal("an empty draft cannot be submitted")
	}
}

func TestDraftLifetimeIsAbsolute(t *testing.T) {
	h := newHarness(t)
	clock := time.UnixMilli(1700000000000).UTC()
	h.svc.now = func() time.Time { return clock }
	h.store.now = func() time.Time { return clock }
	h.store.ttl = 12 * time.Hour
	h.store.maxAge = 20 * time.Hour
	ctx := context.Background()

	d := h.start(t)
	if _, err := h.svc.AddImage(ctx, d.ID, file("a.jpg")); err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	clock = clock.Add(10 * time.Hour)
	if _, err := h.svc.AttachVideo(ctx, d.ID, widgetResult("a.mp4")); err != nil {
		t.Fatalf("AttachVideo within lifetime: %v", err)
	}

	clock = clock.Add(10 * time.Hour)
	if _, err := h.svc.AttachVideo(ctx, d.ID, widgetResult("b.mp4")); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected draft expired at max age despite edits, got %v", err)
	}
}
