package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/mahuwo/mahuwo-backend/pkg/db/models"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
)

const (
	defaultStagedRetention = 24 * time.Hour
	defaultStagedBatchSize = 200
)

// StagedImageCleanupJobParams configure the staged image cleanup.
type StagedImageCleanupJobParams struct {
	Logger    *logger.Logger
	Repo      stagedImageRepo
	Releaser  imageReleaser
	Retention time.Duration
	BatchSize int
}

type stagedImageRepo interface {
	ListStagedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ListingImage, error)
}

type imageReleaser interface {
	Release(ctx context.Context, imageID string) error
}

// NewStagedImageCleanupJob purges images uploaded from drafts that were never
// submitted. Retention must outlive the absolute draft lifetime.
func NewStagedImageCleanupJob(params StagedImageCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("image repository required")
	}
	if params.Releaser == nil {
		return nil, fmt.Errorf("image releaser required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultStagedRetention
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultStagedBatchSize
	}
	return &stagedImageCleanupJob{
		logg:      params.Logger,
		repo:      params.Repo,
		releaser:  params.Releaser,
		retention: retention,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

type stagedImageCleanupJob struct {
	logg      *logger.Logger
	repo      stagedImageRepo
	releaser  imageReleaser
	retention time.Duration
	batchSize int
	now       func() time.Time
}

func (j *stagedImageCleanupJob) Name() string { return "staged-image-cleanup" }

func (j *stagedImageCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	rows, err := j.repo.ListStagedBefore(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query staged images: %w", err)
	}

	var (
		released int
		errs     error
	)
	for _, row := range rows {
		if err := j.releaser.Release(ctx, row.ID.String()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release %s: %w", row.ID, err))
			continue
		}
		released++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(rows),
		"released":   released,
	})
	j.logg.Info(logCtx, "staged image cleanup complete")
	return errs
}
