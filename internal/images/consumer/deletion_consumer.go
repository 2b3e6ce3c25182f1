package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mahuwo/mahuwo-backend/pkg/db"
	"github.com/mahuwo/mahuwo-backend/pkg/db/models"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
)

type imageRepository interface {
	FindByGCSKey(ctx context.Context, gcsKey string) (*models.ListingImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DeletionConsumer removes listing image rows whose bucket object was deleted.
type DeletionConsumer struct {
	repo         imageRepository
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

func NewDeletionConsumer(repo imageRepository, subscription *pubsub.Subscriber, logg *logger.Logger) (*DeletionConsumer, error) {
	if repo == nil {
		return nil, errors.New("image repository is required")
	}
	if subscription == nil {
		return nil, errors.New("image deletion subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &DeletionConsumer{repo: repo, subscription: subscription, logg: logg}, nil
}

// Run processes deletion notifications until the context is canceled.
func (c *DeletionConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *DeletionConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	attrs := parseAttributes(msg.Attributes)
	fields := c.buildLogFields(msg.ID, attrs, nil)
	logCtx := c.logg.WithFields(ctx, fields)

	if attrs.EventType != objectDeleteEvent {
		c.logg.Debug(logCtx, "skipping non-delete event")
		return processResult{ack: true}
	}
	// A delete caused by an overwrite leaves a live object under the same key.
	if attrs.OverwrittenByGen != "" {
		c.logg.Info(logCtx, "skipping delete from overwrite")
		return processResult{ack: true}
	}
	if attrs.PayloadFormat != payloadFormatJSONAPI {
		c.logg.Warn(logCtx, "unsupported payload format")
		return processResult{ack: true}
	}

	payload, err := decodePayload(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	var gcs gcsPayload
	if err := json.Unmarshal(payload, &gcs); err != nil {
		fields["payload_preview"] = previewBytes(payload, 800)
		fields["payload_len"] = len(payload)
		c.logg.Error(c.logg.WithFields(ctx, fields), "failed to unmarshal payload", err)
		return processResult{ack: true}
	}

	fields = c.buildLogFields(msg.ID, attrs, &gcs)
	logCtx = c.logg.WithFields(ctx, fields)
	if strings.TrimSpace(gcs.Name) == "" {
		c.logg.Error(logCtx, "payload missing gcs object name", fmt.Errorf("empty name"))
		return processResult{ack: true}
	}

	row, err := c.repo.FindByGCSKey(logCtx, gcs.Name)
	if err != nil {
		if db.IsNotFound(err) {
			c.logg.Debug(logCtx, "no listing image for deleted object")
			return processResult{ack: true}
		}
		return c.handleDBError(logCtx, err)
	}

	fields["image_id"] = row.ID.String()
	if row.ListingID != nil {
		fields["listing_id"] = row.ListingID.String()
	}
	logCtx = c.logg.WithFields(ctx, fields)

	if err := c.repo.Delete(logCtx, row.ID); err != nil {
		return c.handleDBError(logCtx, err)
	}

	c.logg.Info(logCtx, "listing image detached after object deletion")
	return processResult{ack: true}
}

func (c *DeletionConsumer) handleDBError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "image deletion db error", err)
	if isTransientError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *DeletionConsumer) buildLogFields(messageID string, attrs gcsAttributes, payload *gcsPayload) map[string]any {
	fields := map[string]any{
		"message_id": messageID,
		"event_type": attrs.EventType,
		"bucket":     firstNonEmpty(attrs.BucketID, gcsBucket(payload)),
	}
	if payload != nil {
		fields["gcs_key"] = payload.Name
	}
	return fields
}
