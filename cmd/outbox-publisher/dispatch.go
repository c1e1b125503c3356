package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/metrics"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox/registry"
	"gorm.io/gorm"
)

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDead
)

// verdict is what happened to one row; settle turns it into row updates.
type verdict struct {
	outcome outcome
	reason  enums.OutboxDLQErrorReason
	topic   string
	eventID string
	err     error
}

// dispatch resolves and publishes a row without touching the database.
func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) verdict {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return verdict{outcome: outcomeDead, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}

	v := verdict{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}
	err = s.publish(ctx, event, resolved)
	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		v.outcome = outcomePublished
	case errors.As(err, &nonRetryable):
		v.outcome, v.reason, v.err = outcomeDead, enums.OutboxDLQReasonNonRetryable, err
	case event.AttemptCount+1 >= s.maxAttempts:
		v.outcome, v.reason = outcomeDead, enums.OutboxDLQReasonMaxAttempts
		v.err = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		v.outcome, v.err = outcomeRetry, err
	}
	return v
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publishers.get(topic, s.publisherFactory)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := pub.Publish(ctx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(ctx)
	return err
}

// settle records the verdict inside the batch transaction.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, v verdict) error {
	ctx = s.logg.WithFields(ctx, s.fields(event, v))

	switch v.outcome {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.Publish(string(event.EventType), metrics.PublishPublished)
		s.logg.Info(ctx, "outbox event published")

	case outcomeRetry:
		s.logg.Warn(s.logg.WithField(ctx, "error", v.err.Error()), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, v.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.metrics.Publish(string(event.EventType), metrics.PublishRetry)

	case outcomeDead:
		s.logg.Warn(s.logg.WithField(ctx, "error", v.err.Error()), "outbox event will not be retried")
		msg := v.err.Error()
		if err := s.dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   v.reason,
			ErrorMessage:  &msg,
			AttemptCount:  event.AttemptCount,
			FailedAt:      time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, v.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.metrics.Publish(string(event.EventType), metrics.PublishDLQ)
	}
	return nil
}

func (s *Service) fields(event models.OutboxEvent, v verdict) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if v.eventID != "" {
		fields["event_id"] = v.eventID
	}
	if v.topic != "" {
		fields["topic"] = v.topic
	}
	if v.outcome == outcomeRetry {
		fields["attempt_count"] = event.AttemptCount + 1
	}
	if v.outcome == outcomeDead {
		fields["error_reason"] = v.reason
	}
	return fields
}
