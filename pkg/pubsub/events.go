package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

const (
	envelopeVersion       = 1
	defaultPublishTimeout = 15 * time.Second
)

// Event is a domain event about one aggregate.
type Event struct {
	Type          string
	AggregateType string
	AggregateID   uuid.UUID
	Data          any
}

// Envelope is the JSON body of every published event.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// EventPublisher delivers domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

// TopicPublisher publishes envelopes to a single topic and waits for the
// server id before returning.
type TopicPublisher struct {
	pub     topicPublisher
	timeout time.Duration
	now     func() time.Time
}

// NewTopicPublisher wraps a Pub/Sub publisher handle. A nil handle yields a
// NoopPublisher.
func NewTopicPublisher(p *pubsub.Publisher) EventPublisher {
	if p == nil {
		return NoopPublisher{}
	}
	return &TopicPublisher{pub: &gcpPublisher{Publisher: p}, timeout: defaultPublishTimeout, now: time.Now}
}

func (p *TopicPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := buildMessage(event, p.now().UTC())
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func buildMessage(event Event, now time.Time) (*pubsub.Message, error) {
	if event.Type == "" {
		return nil, errors.New("event type is required")
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", event.Type, err)
	}
	envelope := Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: now,
		Data:       data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     event.Type,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     now.Format(time.RFC3339Nano),
		},
	}, nil
}

// NoopPublisher drops every event. Used when no listing topic is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
