package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lektora/lektora/internal/shared/domain"
)

// Publisher sends messages to the event bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// Envelope is the wire form of a domain event: the common event metadata
// plus the event's own exported fields as the payload.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// PublishDomainEvents wraps each event in an Envelope and publishes it under
// its routing key. Publishing stops at the first failure.
func PublishDomainEvents(ctx context.Context, publisher Publisher, events []domain.DomainEvent) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.RoutingKey(), err)
		}
		body, err := json.Marshal(Envelope{
			EventID:       event.EventID(),
			AggregateID:   event.AggregateID(),
			AggregateType: event.AggregateType(),
			RoutingKey:    event.RoutingKey(),
			OccurredAt:    event.OccurredAt(),
			Payload:       payload,
		})
		if err != nil {
			return fmt.Errorf("marshal envelope %s: %w", event.RoutingKey(), err)
		}
		if err := publisher.Publish(ctx, event.RoutingKey(), body); err != nil {
			return fmt.Errorf("publish %s: %w", event.RoutingKey(), err)
		}
	}
	return nil
}
