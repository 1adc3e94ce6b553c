// Package broker moves envelopes between services over Kafka or an
// in-process bus.
package broker

import (
	"context"

	"monitorss/pkg/models"
)

// Producer publishes envelopes to a topic. Publish returns once the broker
// acknowledged the write.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// Consumer runs a handler for every envelope of a topic. Consume blocks
// until ctx is done; failed envelopes are retried and then dead-lettered.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc handles one envelope. Returning a retry.FatalError skips the
// remaining attempts.
type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error
