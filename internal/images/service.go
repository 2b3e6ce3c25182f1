package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mahuwo/mahuwo-backend/internal/drafts"
	"github.com/mahuwo/mahuwo-backend/pkg/db"
	"github.com/mahuwo/mahuwo-backend/pkg/db/models"
	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
	"github.com/mahuwo/mahuwo-backend/pkg/storage/gcs"
)

const defaultMaxUploadBytes = 20 * 1024 * 1024

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

type imageRepository interface {
	Create(ctx context.Context, img *models.ListingImage) (*models.ListingImage, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ListingImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service stores listing images and releases the ones a draft drops.
type Service interface {
	drafts.ImageUploader
	drafts.ImageRemover
}

type service struct {
	repo     imageRepository
	store    gcs.ObjectStore
	maxBytes int64
	logg     *logger.Logger
}

// NewService constructs the image service. A non-positive maxBytes selects
// the 20 MB default.
func NewService(repo imageRepository, store gcs.ObjectStore, maxBytes int64, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("image repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &service{repo: repo, store: store, maxBytes: maxBytes, logg: logg}, nil
}

func (s *service) Upload(ctx context.Context, req drafts.UploadRequest, cfg drafts.ImageConfig) (drafts.ImageRecord, error) {
	file := req.File
	if file.Body == nil {
		return drafts.ImageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "image file is required")
	}
	fileName := strings.TrimSpace(file.Name)
	if fileName == "" {
		return drafts.ImageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if file.Size > s.maxBytes {
		return drafts.ImageRecord{}, s.overLimit(file.Size)
	}

	data, err := io.ReadAll(io.LimitReader(file.Body, s.maxBytes+1))
	if err != nil {
		return drafts.ImageRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read image upload")
	}
	if int64(len(data)) > s.maxBytes {
		return drafts.ImageRecord{}, s.overLimit(int64(len(data)))
	}
	if len(data) == 0 {
		return drafts.ImageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "image file is empty")
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), allowedImageTypes...) {
		return drafts.ImageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails(map[string]any{"mime_type": detected.String(), "allowed": allowedImageTypes})
	}
	mimeType := detected.String()

	id := uuid.New()
	key := buildGCSKey(cfg.VariantPrefix, id, fileName, detected.Extension())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"pending_id": req.ID,
		"image_id":   id.String(),
		"gcs_key":    key,
	})

	if err := s.store.Put(ctx, key, mimeType, bytes.NewReader(data)); err != nil {
		return drafts.ImageRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image object")
	}

	row := &models.ListingImage{
		ID:        id,
		GCSKey:    key,
		URL:       s.store.PublicURL(key),
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
	}
	if _, err := s.repo.Create(ctx, row); err != nil {
		err = multierr.Append(err, s.store.Delete(context.WithoutCancel(ctx), key))
		return drafts.ImageRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist image row")
	}

	s.logg.Info(logCtx, "image stored")
	return drafts.ImageRecord{
		ID:        id.String(),
		URL:       row.URL,
		FileName:  row.FileName,
		MimeType:  row.MimeType,
		SizeBytes: row.SizeBytes,
	}, nil
}

func (s *service) overLimit(size int64) error {
	return pkgerrors.New(pkgerrors.CodeUploadLimit, fmt.Sprintf("image must be at most %d bytes", s.maxBytes)).
		WithDetails(map[string]any{"size_bytes": size, "max_bytes": s.maxBytes})
}

// Release deletes a staged image. Images attached to a listing stay until a
// submit detaches them; ids that never reached the server are ignored.
func (s *service) Release(ctx context.Context, imageID string) error {
	id, err := uuid.Parse(strings.TrimSpace(imageID))
	if err != nil {
		return nil
	}
	logCtx := s.logg.WithField(ctx, "image_id", id.String())

	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load image row")
	}
	if row.ListingID != nil {
		s.logg.Debug(logCtx, "image attached to listing; kept until submit")
		return nil
	}

	var errs error
	if err := s.store.Delete(ctx, row.GCSKey); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := s.repo.Delete(ctx, row.ID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "release image")
	}
	s.logg.Info(logCtx, "staged image released")
	return nil
}

func buildGCSKey(variant string, id uuid.UUID, fileName, ext string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String() + ext
	}
	variant = sanitizeFileName(variant)
	if variant == "" {
		return fmt.Sprintf("listings/images/%s/%s", id.String(), cleanName)
	}
	return fmt.Sprintf("listings/images/%s/%s/%s", variant, id.String(), cleanName)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
