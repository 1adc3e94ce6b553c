package broker

import (
	"context"
	"fmt"

	"monitorss/internal/delivery"
	"monitorss/pkg/logging"
	"monitorss/pkg/models"
)

type eventPublisher struct {
	producer Producer
	topic    string
	source   string
}

// NewEventPublisher publishes destination events as envelopes of type
// models.TypeDestinationEvent on topic.
func NewEventPublisher(producer Producer, topic, source string) delivery.EventPublisher {
	return &eventPublisher{producer: producer, topic: topic, source: source}
}

func (p *eventPublisher) Publish(ctx context.Context, event delivery.Event) error {
	envelope, err := models.NewMessageEnvelopeBuilder(models.TypeDestinationEvent).
		WithSource(p.source).
		WithTimestamp(event.Timestamp).
		WithPayload(event).
		WithTraceID(logging.GetTraceID(ctx)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build destination event: %w", err)
	}
	return p.producer.Publish(ctx, p.topic, *envelope)
}
