package delivery

import (
	"context"
	"time"

	"monitorss/internal/logger"
	"monitorss/internal/outcomes"
	"monitorss/pkg/metrics"
	"monitorss/pkg/retry"
)

// EventType names a destination event. Consumers typically disable the
// destination on any of them.
type EventType string

const (
	EventBadFormat          EventType = "badFormat"
	EventMissingPermissions EventType = "missingPermissions"
	EventNotFound           EventType = "notFound"
)

// Event reports a terminal rejection by the chat API.
type Event struct {
	Type          EventType `json:"type"`
	FeedID        string    `json:"feedId"`
	DestinationID string    `json:"destinationId"`
	ArticleID     string    `json:"articleId,omitempty"`
	ResponseBody  string    `json:"responseBody,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// EventPublisher delivers events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventPublisherFunc adapts a function to EventPublisher.
type EventPublisherFunc func(ctx context.Context, event Event) error

func (f EventPublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// recorder persists outcomes and publishes events with bounded retries.
// Failures are logged; a sent message is never rolled back.
type recorder struct {
	store     outcomes.Store
	publisher EventPublisher
	policy    retry.Policy
	logger    logger.Logger
}

func (r *recorder) record(ctx context.Context, o *outcomes.Outcome) {
	err := retry.RetryWithCallback(ctx, r.policy, func() error {
		return r.store.Record(ctx, o)
	}, func(attempt int, err error, next time.Duration) {
		r.logger.WarnwCtx(ctx, "Retrying outcome record",
			"attempt", attempt,
			"next_delay", next,
			"error", err,
		)
	})
	if err != nil {
		r.logger.ErrorwCtx(ctx, "Failed to record delivery outcome",
			"feed_id", o.FeedID,
			"destination_id", o.DestinationID,
			"status", o.Status,
			"error", err,
		)
	}
}

func (r *recorder) publish(ctx context.Context, event Event) {
	metrics.IncDeliveryEvent(string(event.Type))

	err := retry.Retry(ctx, r.policy, func() error {
		return r.publisher.Publish(ctx, event)
	})
	if err != nil {
		r.logger.ErrorwCtx(ctx, "Failed to publish destination event",
			"type", event.Type,
			"destination_id", event.DestinationID,
			"error", err,
		)
	}
}
